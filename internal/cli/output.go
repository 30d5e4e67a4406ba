package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nisimpson/codebytes"
)

// Response is the JSON output of every command.
type Response struct {
	Status string `json:"status"` // "ok"
	Data   any    `json:"data,omitempty"`
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Response{Status: "ok", Data: data})
}

// RuntimeRow is the output shape of one runtime.
type RuntimeRow struct {
	Name         string   `json:"name"`
	User         string   `json:"user"`
	ARN          string   `json:"arn"`
	System       bool     `json:"system"`
	Requirements []string `json:"requirements"`
	Description  string   `json:"description,omitempty"`
}

func runtimeRow(doc *codebytes.Document) RuntimeRow {
	row := RuntimeRow{
		Name:        doc.Name(),
		User:        doc.User(),
		ARN:         doc.String("arn"),
		System:      doc.Bool(codebytes.AttributeNameSystem),
		Description: doc.String("description"),
	}
	_ = doc.Decode("requirements", &row.Requirements)
	if row.Requirements == nil {
		row.Requirements = []string{}
	}
	return row
}

func writeRuntimes(w io.Writer, format string, rows []RuntimeRow) error {
	if format == "json" {
		return writeJSON(w, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tUSER\tSYSTEM\tARN\tREQUIREMENTS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", r.Name, r.User, r.System, r.ARN, strings.Join(r.Requirements, ","))
	}
	return tw.Flush()
}
