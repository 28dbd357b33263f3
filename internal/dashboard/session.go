package dashboard

import (
	"log/slog"

	"github.com/daiverp/daiverp/pkg/chart"
	"github.com/daiverp/daiverp/pkg/dashapi"
	"github.com/daiverp/daiverp/pkg/predict"
	"github.com/pkg/errors"
)

const (
	StatusUploaded     = "File processed successfully! Download predictions with the download command."
	StatusUploadFailed = "Upload failed. Please check the file and try again."
	StatusInvalidFile  = "Invalid file type. Please upload a .csv file."
)

// Session is the state behind the predictions table. Rows are replaced as a
// whole by a successful upload and never modified; filters and sorting only
// change the derived view.
type Session struct {
	rows        []predict.Row
	products    []string
	downloadURL string
	status      string

	view predict.View
}

func New() *Session {
	return &Session{}
}

// Load replaces the rows, as when reopening saved predictions
func (s *Session) Load(rows []predict.Row) {
	s.rows = append([]predict.Row(nil), rows...)
}

// ApplyUpload takes the outcome of an upload. On failure the previous rows
// and download link are kept and only the status changes. err is returned
// unchanged so the caller may still act on it.
func (s *Session) ApplyUpload(res dashapi.UploadResult, err error) error {
	if err != nil {
		slog.Debug("upload failed", "err", err)
		if errors.Is(err, dashapi.ErrInvalidFileType) {
			s.status = StatusInvalidFile
		} else {
			s.status = StatusUploadFailed
		}
		return err
	}

	s.Load(res.Predictions)
	s.downloadURL = res.DownloadURL
	s.status = StatusUploaded
	return nil
}

// SetProducts sets the product choices offered by the backend
func (s *Session) SetProducts(products []string) {
	s.products = append([]string(nil), products...)
}

// Products returns the backend product list, or the products of the loaded
// rows when the backend gave none.
func (s *Session) Products() []string {
	if len(s.products) > 0 {
		return append([]string(nil), s.products...)
	}
	return predict.Products(s.rows)
}

func (s *Session) Search(q string) {
	s.view.Filter.SearchQuery = q
}

// SelectProduct restricts rows to one product, "" shows all of them
func (s *Session) SelectProduct(p string) {
	s.view.Filter.Product = p
}

// RequestSort sorts by key, flipping the direction when key is already the
// sort column.
func (s *Session) RequestSort(key string) {
	s.view.Sort = s.view.Sort.Toggle(key)
}

// SetSort forces a sort column and direction
func (s *Session) SetSort(key string, dir predict.Direction) {
	s.view.Sort = predict.SortState{Key: key, Direction: dir}
}

func (s *Session) View() predict.View {
	return s.view
}

// Visible is the filtered and sorted view of the rows
func (s *Session) Visible() []predict.Row {
	return s.view.Apply(s.rows)
}

func (s *Session) Rows() []predict.Row {
	return append([]predict.Row(nil), s.rows...)
}

// Counts is the severity breakdown of all loaded rows
func (s *Session) Counts() chart.Counts {
	return chart.CountSeverities(s.rows)
}

// Chart is the severity bar chart of the loaded rows
func (s *Session) Chart() chart.Data {
	return chart.SeverityBar(s.Counts())
}

func (s *Session) DownloadURL() string {
	return s.downloadURL
}

func (s *Session) Status() string {
	return s.status
}
