package output

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/review-cli/internal/model"
)

var reviewHeader = []string{"Date", "Rating", "Title", "Review", "Reviewer", "Source", "Method", "Page URL"}

// WriteXLSX writes doc to <dir>/<company>_<source>_reviews.xlsx with a
// Reviews sheet and a Run sheet holding metadata and any error.
func WriteXLSX(dir string, doc Document) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "output: create dir %s", dir)
	}

	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Reviews")
	if err != nil {
		return "", eris.Wrap(err, "xlsx: add reviews sheet")
	}
	addStringRow(sheet, reviewHeader...)
	for _, r := range doc.Reviews {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Date)
		row.AddCell().SetFloat(r.Rating)
		row.AddCell().SetString(r.Title)
		row.AddCell().SetString(r.Review)
		row.AddCell().SetString(r.Reviewer)
		row.AddCell().SetString(string(r.Source))
		method, pageURL := provenanceCells(r)
		row.AddCell().SetString(method)
		row.AddCell().SetString(pageURL)
	}

	meta, err := f.AddSheet("Run")
	if err != nil {
		return "", eris.Wrap(err, "xlsx: add run sheet")
	}
	m := doc.Metadata
	addStringRow(meta, "company", m.Company)
	addStringRow(meta, "source", m.Source)
	addStringRow(meta, "start_date", m.StartDate)
	addStringRow(meta, "end_date", m.EndDate)
	addStringRow(meta, "scraped_at", m.ScrapedAt.Format(time.RFC3339))
	addStringRow(meta, "run_id", m.RunID)
	pages := meta.AddRow()
	pages.AddCell().SetString("pages_fetched")
	pages.AddCell().SetInt(m.PagesFetched)
	addStringRow(meta, "stop_reason", m.StopReason)
	if e := doc.Error; e != nil {
		addStringRow(meta, "error_status", e.Status)
		addStringRow(meta, "error_message", e.Message)
		addStringRow(meta, "error_reason", e.Reason)
	}

	path := filepath.Join(dir, BaseName(doc)+".xlsx")
	if err := f.Save(path); err != nil {
		return "", eris.Wrapf(err, "xlsx: save %s", path)
	}
	return path, nil
}

func addStringRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func provenanceCells(r model.Review) (method, pageURL string) {
	if r.Provenance == nil {
		return "", ""
	}
	return string(r.Provenance.Method), r.Provenance.PageURL
}
