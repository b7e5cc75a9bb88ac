package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/a3tai/html-fillable-pdf/internal/pdf"
)

// Result is the report for one PDF file
type Result struct {
	FilePath    string          `json:"file_path"`
	Success     bool            `json:"success"`
	PageCount   int             `json:"page_count"`
	FieldCount  int             `json:"field_count"`
	Fields      []pdf.FormField `json:"fields"`
	Diagnostics *Diagnostics    `json:"diagnostics,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Diagnostics compares the AcroForm with the widgets a second parser sees on each page
type Diagnostics struct {
	WidgetsPerPage []int    `json:"widgets_per_page"`
	Warnings       []string `json:"warnings"`
}

func main() {
	fs := pflag.NewFlagSet("pdf_form_fields", pflag.ContinueOnError)
	format := fs.String("format", "text", "Output format: text, json")
	diagnostic := fs.Bool("diagnostic", false, "Cross-check fields against page annotations")
	fs.Usage = func() { printUsage(os.Stderr, fs) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	result := inspect(fs.Arg(0), *diagnostic)
	if err := output(os.Stdout, result, *format); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
	if !result.Success {
		os.Exit(1)
	}
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "List the form fields of a PDF document")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_form_fields [OPTIONS] <pdf_file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprint(w, fs.FlagUsages())
}

// inspect never fails; errors are reported in the result
func inspect(path string, diagnostic bool) *Result {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	result := &Result{FilePath: absPath}

	doc, err := pdf.LoadDocumentFile(absPath)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	fields, err := pdf.ListFormFields(doc)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.PageCount = doc.PageCount()
	result.FieldCount = len(fields)
	result.Fields = fields

	if diagnostic {
		result.Diagnostics = diagnose(doc, fields)
	}
	return result
}

func diagnose(doc *pdf.Document, fields []pdf.FormField) *Diagnostics {
	d := &Diagnostics{Warnings: []string{}}

	in, err := pdf.Inspect(doc.Bytes())
	if err != nil {
		d.Warnings = append(d.Warnings, fmt.Sprintf("second parser failed: %v", err))
		return d
	}

	perPage := make(map[int]int)
	for _, f := range fields {
		perPage[f.Page]++
	}
	if n := perPage[0]; n > 0 {
		d.Warnings = append(d.Warnings, fmt.Sprintf("%d field(s) are not placed on any page", n))
	}

	d.WidgetsPerPage = make([]int, len(in.Pages))
	for i, page := range in.Pages {
		d.WidgetsPerPage[i] = len(page.Widgets)
		if len(page.Widgets) != perPage[page.Number] {
			d.Warnings = append(d.Warnings, fmt.Sprintf("page %d: %d widget annotation(s), %d AcroForm field(s)",
				page.Number, len(page.Widgets), perPage[page.Number]))
		}
	}
	if len(in.Pages) != doc.PageCount() {
		d.Warnings = append(d.Warnings, fmt.Sprintf("page count differs between parsers: %d vs %d", len(in.Pages), doc.PageCount()))
	}
	return d
}

func output(w io.Writer, result *Result, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "text":
		writeText(w, result)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeText(w io.Writer, result *Result) {
	if !result.Success {
		fmt.Fprintf(w, "Form field listing failed: %s\n", result.Error)
		return
	}

	fmt.Fprintf(w, "%s: %d page(s), %d form field(s)\n", result.FilePath, result.PageCount, result.FieldCount)
	if result.FieldCount == 0 {
		fmt.Fprintln(w, "No form fields found")
	}

	for i, field := range result.Fields {
		fmt.Fprintf(w, "\n[%d] %s\n", i+1, field.Name)
		fmt.Fprintf(w, "    Type: %s\n", field.Type)
		if field.Page > 0 {
			fmt.Fprintf(w, "    Page: %d\n", field.Page)
		}
		fmt.Fprintf(w, "    Position: (%.1f, %.1f) to (%.1f, %.1f)\n",
			field.Rect.X, field.Rect.Y, field.Rect.URX(), field.Rect.URY())
		if field.Tooltip != "" && field.Tooltip != field.Name {
			fmt.Fprintf(w, "    Tooltip: %s\n", field.Tooltip)
		}
		if field.Value != "" {
			fmt.Fprintf(w, "    Value: %s\n", field.Value)
		}
		if field.BorderStyle != "" {
			fmt.Fprintf(w, "    Border: %s\n", field.BorderStyle)
		}

		var properties []string
		if field.Multiline {
			properties = append(properties, "Multiline")
		}
		if field.Required {
			properties = append(properties, "Required")
		}
		if field.ReadOnly {
			properties = append(properties, "ReadOnly")
		}
		if len(properties) > 0 {
			fmt.Fprintf(w, "    Properties: %v\n", properties)
		}
	}

	if result.Diagnostics != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Widgets per page: %v\n", result.Diagnostics.WidgetsPerPage)
		for _, warning := range result.Diagnostics.Warnings {
			fmt.Fprintf(w, "Warning: %s\n", warning)
		}
	}
}
