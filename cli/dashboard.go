package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/daiverp/daiverp/config"
	"github.com/daiverp/daiverp/internal/dashboard"
	"github.com/daiverp/daiverp/internal/report"
	"github.com/daiverp/daiverp/pkg/chart"
	"github.com/daiverp/daiverp/pkg/dashapi"
	"github.com/daiverp/daiverp/pkg/predict"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var sortAliases = map[string]string{
	"cve":      predict.ColumnCVEID,
	"id":       predict.ColumnCVEID,
	"system":   predict.ColumnSystemID,
	"product":  predict.ColumnProduct,
	"score":    predict.ColumnRiskScore,
	"risk":     predict.ColumnRiskScore,
	"severity": predict.ColumnSeverity,
}

// viewFlags are the table filters shared by upload and view
type viewFlags struct {
	search  string
	product string
	sortKey string
	desc    bool
	chart   bool
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "show rows whose CVE or system id contains this text")
	cmd.Flags().StringVarP(&f.product, "product", "p", "", "show rows of this product only")
	cmd.Flags().StringVar(&f.sortKey, "sort", "", "sort column: cve, system, product, score, severity or any column name")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&f.chart, "chart", false, "save the severity chart as PNG")
}

func (f viewFlags) apply(s *dashboard.Session) {
	s.Search(f.search)
	s.SelectProduct(f.product)

	if f.sortKey == "" {
		return
	}

	key := f.sortKey
	if alias, ok := sortAliases[strings.ToLower(key)]; ok {
		key = alias
	}

	dir := predict.Asc
	if f.desc {
		dir = predict.Desc
	}
	s.SetSort(key, dir)
}

func newClient() *dashapi.Client {
	c := config.Runtime.Client()
	c.UserAgent = "daiverp/" + version
	return c
}

// printOut writes v in the configured structured format, or calls table
func printOut(v interface{}, table func(io.Writer) error) error {
	if config.Runtime.Format == config.FormatTable {
		return table(os.Stdout)
	}
	return report.WriteStructured(os.Stdout, config.Runtime.Format, v)
}

type sessionOutput struct {
	Status      string         `json:"status,omitempty" yaml:"status,omitempty"`
	DownloadURL string         `json:"downloadUrl,omitempty" yaml:"downloadUrl,omitempty"`
	Severity    map[string]int `json:"severity" yaml:"severity"`
	Predictions []predict.Row  `json:"predictions" yaml:"predictions"`
}

func showSession(s *dashboard.Session, saveChart bool) error {
	visible := s.Visible()

	out := sessionOutput{
		Status:      s.Status(),
		DownloadURL: s.DownloadURL(),
		Severity:    chart.CountSeverities(visible).Map(),
		Predictions: visible,
	}
	err := printOut(out, func(w io.Writer) error {
		if err := report.ResolvePredictions(w, visible, chart.CountSeverities(visible)); err != nil {
			return err
		}
		if len(s.Rows()) == 0 {
			return nil
		}
		fmt.Fprintln(w, "\nSeverity breakdown of all predictions")
		return report.ResolveCounts(w, s.Counts())
	})
	if err != nil {
		return err
	}

	if !saveChart {
		return nil
	}

	_, err = report.SaveBeside(config.Runtime.Output, report.Stamped("severity", "png", time.Now()), func(w io.Writer) error {
		return chart.RenderBar(w, s.Chart())
	})
	return err
}

func newUploadCommand() *cobra.Command {
	var (
		vf   viewFlags
		save bool
	)

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a CSV of systems and show the predicted risks",
		Args:  ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			model, err := dashapi.ParseModel(config.Runtime.Model)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "could not open upload")
			}
			defer f.Close()

			var size int64 = -1
			if fi, err := f.Stat(); err == nil {
				size = fi.Size()
			}

			bar := progressbar.NewOptions64(size,
				progressbar.OptionSetDescription("uploading "+filepath.Base(args[0])),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowBytes(true),
				progressbar.OptionClearOnFinish(),
			)

			client := newClient()
			session := dashboard.New()

			res, err := client.Upload(ctx, args[0], io.TeeReader(f, bar), model)
			_ = bar.Finish()

			if err := session.ApplyUpload(res, err); err != nil {
				slog.Error(session.Status(), "err", err)
				return err
			}
			slog.Info(session.Status(), "model", model, "rows", len(res.Predictions), "download", res.Filename())

			if products, err := client.Products(ctx); err != nil {
				slog.Debug("could not fetch products", "err", err)
			} else {
				session.SetProducts(products)
			}

			if save {
				if _, err := report.SavePredictions(config.Runtime.Output, session.Rows(), time.Now()); err != nil {
					return err
				}
			}

			vf.apply(session)
			return showSession(session, vf.chart)
		},
	}

	cmd.Flags().StringP("model", "m", "V1", "model version used for the predictions, V1 or V2")
	cmd.Flags().BoolVar(&save, "save", false, "save the predictions as JSON in the output location")
	vf.register(cmd)

	return cmd
}

func newViewCommand() *cobra.Command {
	var (
		vf   viewFlags
		file string
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show predictions saved by upload --save",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("missing predictions file, use -f")
			}

			rows, err := report.LoadPredictions(file)
			if err != nil {
				return err
			}

			session := dashboard.New()
			session.Load(rows)
			vf.apply(session)

			return showSession(session, vf.chart)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path of the predictions JSON file")
	vf.register(cmd)

	return cmd
}

func newDownloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "download FILENAME",
		Short: "Download the predictions CSV of an earlier upload",
		Args:  ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()

			_, err := report.SaveWith(config.Runtime.Output, filepath.Base(args[0]), func(w io.Writer) error {
				n, err := client.Download(cmd.Context(), args[0], w)
				slog.Debug("downloaded", "bytes", n)
				return err
			})
			return err
		},
	}
}

func newProductsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the products known to the backend",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := newClient().Products(cmd.Context())
			if err != nil {
				return err
			}

			return printOut(products, func(w io.Writer) error {
				return report.ResolveProducts(w, products)
			})
		},
	}
}

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List the most recent prediction jobs",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := newClient().History(cmd.Context())
			if err != nil {
				return err
			}

			return printOut(records, func(w io.Writer) error {
				return report.ResolveHistory(w, records)
			})
		},
	}
}

func newVulnsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vulns",
		Short: "List the vulnerabilities table of the backend",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vulns, err := newClient().Vulnerabilities(cmd.Context())
			if err != nil {
				return err
			}

			return printOut(vulns, func(w io.Writer) error {
				return report.ResolveVulnerabilities(w, vulns)
			})
		},
	}
}
