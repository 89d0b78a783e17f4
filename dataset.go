package main

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

const (
	textColumn  = "text"
	labelColumn = "labels"
)

// Dataset is a set of texts with one label string per text.
type Dataset struct {
	Texts  []string
	Labels []string
}

// Len is the number of rows.
func (d *Dataset) Len() int { return len(d.Texts) }

// datasetRow is the parquet schema of a dataset file.
type datasetRow struct {
	Text   string `parquet:"text"`
	Labels string `parquet:"labels"`
}

// ReadDataset loads a .csv or .parquet file with "text" and "labels" columns.
func ReadDataset(path string) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		ds, err = readParquet(path)
	case ".csv", "":
		ds, err = readCSV(path)
	default:
		return nil, errors.Errorf("unsupported dataset format %q", path)
	}
	if err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, errors.Wrapf(ErrEmptyDataset, "%q", path)
	}
	return ds, nil
}

func readCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening dataset %q", path)
	}
	defer f.Close()
	return parseCSV(f, path)
}

func parseCSV(r io.Reader, name string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "reading header of %q", name)
	}
	textCol, labelCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case textColumn:
			textCol = i
		case labelColumn:
			labelCol = i
		}
	}
	if textCol < 0 || labelCol < 0 {
		return nil, errors.Errorf("%q: header %v lacks %q and %q columns", name, header, textColumn, labelColumn)
	}

	ds := &Dataset{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading %q", name)
		}
		if textCol >= len(rec) || labelCol >= len(rec) {
			return nil, errors.Errorf("%q line %d: %d fields, need %d", name, line, len(rec), max(textCol, labelCol)+1)
		}
		ds.Texts = append(ds.Texts, rec[textCol])
		ds.Labels = append(ds.Labels, rec[labelCol])
	}
	return ds, nil
}

func readParquet(path string) (*Dataset, error) {
	rows, err := parquet.ReadFile[datasetRow](path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading parquet dataset %q", path)
	}
	ds := &Dataset{
		Texts:  make([]string, len(rows)),
		Labels: make([]string, len(rows)),
	}
	for i, r := range rows {
		ds.Texts[i] = r.Text
		ds.Labels[i] = r.Labels
	}
	return ds, nil
}
