package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/html-fillable-pdf/internal/config"
	"github.com/a3tai/html-fillable-pdf/internal/descriptions"
	"github.com/a3tai/html-fillable-pdf/internal/form"
	"github.com/a3tai/html-fillable-pdf/internal/pdf"
	"github.com/a3tai/html-fillable-pdf/internal/pipeline"
	"github.com/a3tai/html-fillable-pdf/internal/render"
	"github.com/a3tai/html-fillable-pdf/internal/security"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	pipeline  *pipeline.Pipeline
	inputs    *security.PathValidator
	outputs   *security.PathValidator
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if p == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	inputs, err := security.NewPathValidator(cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid input directory: %w", err)
	}
	outputs, err := security.NewPathValidator(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid output directory: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // the tool set is fixed
	)

	s := &Server{
		config:    cfg,
		pipeline:  p,
		inputs:    inputs,
		outputs:   outputs,
		mcpServer: mcpServer,
		logger:    logger,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	convertTool := mcp.NewTool(
		"html_to_fillable_pdf",
		mcp.WithDescription(descriptions.GetToolDescription("html_to_fillable_pdf")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("HTML file, absolute or relative to the server input directory"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Subdirectory of the server output directory for the artifacts (uses the output directory itself if empty)"),
		),
		mcp.WithString("fields",
			mcp.Description("Saved field list to reuse instead of measuring controls in the browser"),
		),
		mcp.WithString("paper",
			mcp.Description("Paper size: "+strings.Join(form.PaperNames(), ", ")),
		),
		mcp.WithNumber("scale",
			mcp.Description("CSS pixel to PDF point factor"),
		),
		mcp.WithString("border_style",
			mcp.Description("Text widget border: "+strings.Join(form.BorderStyles(), ", ")),
		),
		mcp.WithBoolean("dedupe_names",
			mcp.Description("Suffix repeated field names with _2, _3, ..."),
		),
		mcp.WithString("page_policy",
			mcp.Description("Overlay page choice for base pages past the overlay's end: "+strings.Join(pdf.PagePolicies(), ", ")),
		),
	)
	s.mcpServer.AddTool(convertTool, s.handleHTMLToFillablePDF)

	listControlsTool := mcp.NewTool(
		"html_list_controls",
		mcp.WithDescription(descriptions.GetToolDescription("html_list_controls")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("HTML file, absolute or relative to the server input directory"),
		),
	)
	s.mcpServer.AddTool(listControlsTool, s.handleHTMLListControls)

	mapFieldsTool := mcp.NewTool(
		"map_fields",
		mcp.WithDescription(descriptions.GetToolDescription("map_fields")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("fields.json file, absolute or relative to the server input directory"),
		),
		mcp.WithString("paper",
			mcp.Description("Paper size: "+strings.Join(form.PaperNames(), ", ")),
		),
		mcp.WithNumber("scale",
			mcp.Description("CSS pixel to PDF point factor"),
		),
		mcp.WithString("border_style",
			mcp.Description("Text widget border: "+strings.Join(form.BorderStyles(), ", ")),
		),
		mcp.WithBoolean("dedupe_names",
			mcp.Description("Suffix repeated field names with _2, _3, ..."),
		),
	)
	s.mcpServer.AddTool(mapFieldsTool, s.handleMapFields)

	formFieldsTool := mcp.NewTool(
		"pdf_form_fields",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_form_fields")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("PDF file, absolute or relative to the server input directory"),
		),
	)
	s.mcpServer.AddTool(formFieldsTool, s.handlePDFFormFields)
}

// Handler functions
func (s *Server) handleHTMLToFillablePDF(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	source, err := s.resolveReadable(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg := *s.config
	cfg.Mode = config.ModeCLI
	cfg.SourcePath = source
	cfg.FieldsPath = ""
	if fields := request.GetString("fields", ""); fields != "" {
		if cfg.FieldsPath, err = s.resolveReadable(fields); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	s.applyMapArguments(&cfg, request)
	cfg.PagePolicy = request.GetString("page_policy", cfg.PagePolicy)

	cfg.OutputDir = s.outputs.Root()
	if sub := request.GetString("output_dir", ""); sub != "" {
		outDir, err := s.outputs.Resolve(sub)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cfg.OutputDir = outDir
	}

	if err := cfg.Validate(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	opts, err := pipeline.OptionsFromConfig(&cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := s.pipeline.Run(ctx, opts)
	if err != nil {
		s.logger.Warn("Conversion failed", "source", path, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatConversionReport(path, report)), nil
}

func (s *Server) handleHTMLListControls(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path, err = s.resolveReadable(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	source, err := render.Preflight(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatSource(source)), nil
}

func (s *Server) handleMapFields(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path, err = s.resolveReadable(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg := *s.config
	s.applyMapArguments(&cfg, request)
	if _, err := form.ParseBorderStyle(cfg.BorderStyle); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	geom, err := cfg.Geometry()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields, err := form.LoadFieldList(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	widgets := form.Map(fields, geom, cfg.MapOptions())
	data, err := json.MarshalIndent(widgets, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode widgets: %v", err)), nil
	}

	text := fmt.Sprintf("Mapped %d field(s) from %s onto %s (%gx%g pt, scale %g)\n\n",
		len(widgets), path, cfg.Paper, geom.WidthPt, geom.HeightPt, geom.Scale)
	return mcp.NewToolResultText(text + string(data)), nil
}

func (s *Server) handlePDFFormFields(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path, err = s.resolveReadable(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := pdf.LoadDocumentFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, err := pdf.ListFormFields(doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatFormFields(path, doc.PageCount(), fields)), nil
}

// resolveReadable confines a file argument to the input directory, or to
// the output directory so earlier artifacts can be read back. Relative names
// are taken from the input directory.
func (s *Server) resolveReadable(name string) (string, error) {
	path, err := s.inputs.Resolve(name)
	if err == nil {
		return path, nil
	}
	if filepath.IsAbs(name) {
		if out, outErr := s.outputs.Resolve(name); outErr == nil {
			return out, nil
		}
	}
	return "", err
}

// applyMapArguments overrides the geometry and naming settings present in the request
func (s *Server) applyMapArguments(cfg *config.Config, request mcp.CallToolRequest) {
	cfg.Paper = request.GetString("paper", cfg.Paper)
	cfg.Scale = request.GetFloat("scale", cfg.Scale)
	cfg.BorderStyle = request.GetString("border_style", cfg.BorderStyle)
	cfg.DedupeNames = request.GetBool("dedupe_names", cfg.DedupeNames)
}

// Formatting methods
func (s *Server) formatConversionReport(source string, report *pipeline.Report) string {
	text := fmt.Sprintf("Converted %s into a fillable PDF\n", filepath.Base(source))
	text += fmt.Sprintf("Fields: %d\n", report.Fields)
	text += fmt.Sprintf("Pages: %d (overlay pages: %d)\n", report.BasePages, report.OverlayPages)
	text += fmt.Sprintf("Elapsed: %s\n", report.Elapsed.Round(time.Millisecond))

	text += "\nArtifacts:\n"
	text += fmt.Sprintf("  Base render: %s\n", report.Artifacts.BasePDF)
	text += fmt.Sprintf("  Overlay: %s\n", report.Artifacts.OverlayPDF)
	text += fmt.Sprintf("  Fillable PDF: %s\n", report.Artifacts.FinalPDF)
	text += fmt.Sprintf("  Field list: %s\n", report.Artifacts.FieldsJSON)

	if len(report.Issues.Warnings) > 0 || len(report.Issues.Errors) > 0 {
		text += "\nNotes:\n"
		for _, issue := range report.Issues.Warnings {
			text += fmt.Sprintf("  • %s\n", issue.Error())
		}
		for _, issue := range report.Issues.Errors {
			text += fmt.Sprintf("  • %s\n", issue.Error())
		}
	}

	return text
}

func (s *Server) formatSource(source *render.Source) string {
	text := fmt.Sprintf("HTML source: %s\n", source.Path)
	if source.Title != "" {
		text += fmt.Sprintf("Title: %s\n", source.Title)
	}
	text += fmt.Sprintf("Controls: %d\n", source.ControlCount())

	fields := form.FromRaw(source.Controls)
	for i, f := range fields {
		text += fmt.Sprintf("%d. %s <%s", i+1, f.Name, f.Tag)
		if f.ControlType != "" {
			text += fmt.Sprintf(" type=%s", f.ControlType)
		}
		text += ">"
		if len(f.Options) > 0 {
			text += fmt.Sprintf(" (%d options)", len(f.Options))
		}
		text += "\n"
	}

	return text
}

func (s *Server) formatFormFields(path string, pages int, fields []pdf.FormField) string {
	text := fmt.Sprintf("PDF form fields for: %s\n", path)
	text += fmt.Sprintf("Pages: %d\n", pages)
	text += fmt.Sprintf("Total fields: %d\n", len(fields))

	if len(fields) > 0 {
		text += "\nFields:\n"
		for i, f := range fields {
			text += fmt.Sprintf("%d. Page %d: %s (%s) at [%.2f %.2f %.2f %.2f]",
				i+1, f.Page, f.Name, f.Type, f.Rect.X, f.Rect.Y, f.Rect.Width, f.Rect.Height)
			if f.BorderStyle != "" {
				text += fmt.Sprintf(", border %s", f.BorderStyle)
			}
			if f.Multiline {
				text += ", multiline"
			}
			text += "\n"
		}
	}

	return text
}

// Run serves the MCP tools on stdin and stdout until the client disconnects
func (s *Server) Run(_ context.Context) error {
	s.logger.Debug("Starting MCP server in stdio mode", "input_dir", s.inputs.Root(), "output_dir", s.outputs.Root())

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
