package dashapi

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/daiverp/daiverp/pkg/predict"
	"github.com/pkg/errors"
)

// UploadResult is the backend answer to a scored CSV
type UploadResult struct {
	Message     string        `json:"message" yaml:"message"`
	DownloadURL string        `json:"download_url" yaml:"download_url"`
	Predictions []predict.Row `json:"predictions" yaml:"predictions"`
}

// Filename is the last element of the download URL
func (u UploadResult) Filename() string {
	return filepath.Base(u.DownloadURL)
}

// Products lists the product names known to the backend CVE log
func (c *Client) Products(ctx context.Context) ([]string, error) {
	const op = "products"

	body, err := c.get(ctx, op, "/api/products", nil)
	if err != nil {
		return nil, err
	}

	items, err := parseArray(op, body)
	if err != nil {
		return nil, err
	}

	products := make([]string, 0, len(items))
	for _, it := range items {
		if it.String() == "" {
			continue
		}
		products = append(products, it.String())
	}
	return products, nil
}

// History lists the most recent prediction jobs, newest first
func (c *Client) History(ctx context.Context) ([]HistoryRecord, error) {
	const op = "history"

	body, err := c.get(ctx, op, "/api/history", nil)
	if err != nil {
		return nil, err
	}

	items, err := parseArray(op, body)
	if err != nil {
		return nil, err
	}

	records := make([]HistoryRecord, 0, len(items))
	for _, it := range items {
		records = append(records, HistoryRecord{
			Timestamp: it.Get("timestamp").String(),
			Model:     it.Get("model").String(),
			Filename:  it.Get("filename").String(),
		})
	}
	return records, nil
}

func (c *Client) Vulnerabilities(ctx context.Context) ([]Vulnerability, error) {
	const op = "vulnerabilities"

	body, err := c.get(ctx, op, "/api/vulnerabilities", nil)
	if err != nil {
		return nil, err
	}

	items, err := parseArray(op, body)
	if err != nil {
		return nil, err
	}

	vulns := make([]Vulnerability, 0, len(items))
	for _, it := range items {
		vulns = append(vulns, Vulnerability{
			ID:           it.Get("id").String(),
			DaiverpScore: number(it.Get("daiverp_score")),
			CVSSScore:    number(it.Get("cvss_score")),
			Product:      it.Get("product").String(),
		})
	}
	return vulns, nil
}

// Upload sends a CSV of systems to be scored with model. Only the file name
// is checked here, the content is the backend's business.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader, model Model) (UploadResult, error) {
	const op = "upload"

	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return UploadResult{}, &Error{Kind: KindInput, Op: op, Err: errors.Wrapf(ErrInvalidFileType, "%q", filename)}
	}
	if model == "" {
		model = ModelV1
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, filepath.Base(filename), r, model))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/upload", nil, pr)
	if err != nil {
		pr.Close()
		return UploadResult{}, &Error{Kind: KindInput, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do(op, req)
	if err != nil {
		return UploadResult{}, err
	}

	return parseUpload(op, body)
}

func writeForm(mw *multipart.Writer, filename string, r io.Reader, model Model) error {
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return errors.Wrap(err, "could not read upload")
	}
	if err := mw.WriteField("model", string(model)); err != nil {
		return err
	}
	return mw.Close()
}

func parseUpload(op string, body []byte) (UploadResult, error) {
	root, err := parseObject(op, body)
	if err != nil {
		return UploadResult{}, err
	}

	res := UploadResult{
		Message:     root.Get("message").String(),
		DownloadURL: root.Get("download_url").String(),
		Predictions: []predict.Row{},
	}
	if res.DownloadURL == "" {
		return res, &Error{Kind: KindPayload, Op: op, Err: errors.New("no download url in response")}
	}

	for _, it := range root.Get("predictions").Array() {
		m, ok := it.Value().(map[string]interface{})
		if !ok {
			continue
		}
		res.Predictions = append(res.Predictions, predict.FromMap(m))
	}

	return res, nil
}

// Download streams a predictions CSV produced by an earlier upload into w
func (c *Client) Download(ctx context.Context, filename string, w io.Writer) (int64, error) {
	const op = "download"

	name := filepath.Base(filename)
	if name == "" || name == "." || name == "/" || strings.Contains(filename, "..") {
		return 0, &Error{Kind: KindInput, Op: op, Err: errors.Errorf("invalid file name %q", filename)}
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/download/"+url.PathEscape(name), nil, nil)
	if err != nil {
		return 0, &Error{Kind: KindInput, Op: op, Err: err}
	}
	req.Header.Set("Accept", "text/csv")

	res, err := c.send(op, req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	n, err := io.Copy(w, res.Body)
	if err != nil {
		return n, &Error{Kind: KindTransport, Op: op, Err: err}
	}
	return n, nil
}
