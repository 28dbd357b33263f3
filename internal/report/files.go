package report

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/daiverp/daiverp/pkg/predict"

	"github.com/pkg/errors"
)

// DefaultOutput is the folder name used when no output location is given
const DefaultOutput = "output"

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func mkFolder(folder string) error {
	if exists(folder) {
		return nil
	}
	return os.MkdirAll(folder, os.FileMode(0755))
}

// Stamped names a file after the day it was written, "predictions-2024-05-01.json"
func Stamped(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", prefix, now.Format("2006-01-02"), ext)
}

// getOutputFile resolves where name is written. The default output is the
// "output" folder of the working directory; an existing directory or a path
// ending with a separator is used as folder; anything else is the file.
func getOutputFile(output, name string) (string, error) {
	return resolveOutput(output, name, false)
}

// getSideFile is getOutputFile for artifacts written next to the main one.
// When output names a file they go beside it as "<stem>-<name>" so the main
// file is never overwritten.
func getSideFile(output, name string) (string, error) {
	return resolveOutput(output, name, true)
}

func resolveOutput(output, name string, side bool) (string, error) {
	var file string

	switch {
	case output == "" || output == DefaultOutput:
		pwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		file = filepath.Join(pwd, DefaultOutput, name)
	case isDir(output) || strings.HasSuffix(output, string(os.PathSeparator)) || strings.HasSuffix(output, "/"):
		file = filepath.Join(output, name)
	case side:
		stem := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))
		file = filepath.Join(filepath.Dir(output), stem+"-"+name)
	default:
		file = output
	}

	if err := mkFolder(filepath.Dir(file)); err != nil {
		return "", errors.Wrapf(err, "could not create output folder for %s", file)
	}
	return file, nil
}

// SavePredictions writes rows as JSON and returns the file path
func SavePredictions(output string, rows []predict.Row, now time.Time) (string, error) {
	filename, err := getOutputFile(output, Stamped("predictions", "json", now))
	if err != nil {
		return "", err
	}

	if rows == nil {
		rows = []predict.Row{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", err
	}

	slog.Info("output file is saved", "path", filename)
	return filename, nil
}

// LoadPredictions reads a file written by SavePredictions
func LoadPredictions(filename string) ([]predict.Row, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var rows []predict.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.Wrapf(err, "%s is not a predictions file", filename)
	}
	return rows, nil
}

// SaveWith creates name under output and lets write fill it. A file valued
// output is used as is.
func SaveWith(output, name string, write func(io.Writer) error) (string, error) {
	filename, err := getOutputFile(output, name)
	if err != nil {
		return "", err
	}
	if err := writeFile(filename, write); err != nil {
		return "", err
	}
	return filename, nil
}

// SaveBeside is SaveWith for secondary artifacts such as charts, see getSideFile
func SaveBeside(output, name string, write func(io.Writer) error) (string, error) {
	filename, err := getSideFile(output, name)
	if err != nil {
		return "", err
	}
	if err := writeFile(filename, write); err != nil {
		return "", err
	}
	return filename, nil
}

func writeFile(filename string, write func(io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(filename)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	slog.Info("output file is saved", "path", filename)
	return nil
}
