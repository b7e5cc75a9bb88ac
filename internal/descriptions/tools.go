package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	HTMLToFillablePDFDescription = `Convert an HTML form into a fillable PDF whose form fields sit exactly over the printed controls.

**When to use:** You have an HTML page with inputs, checkboxes, selects or textareas and need a PDF that can be filled in a PDF viewer.

**Why it's useful:** The page is printed by a headless browser, every control's box is measured in the same layout pass, and a matching AcroForm widget is placed on every page.

**Examples:**
• Paper form from a web form: "Convert signup.html into a fillable PDF"
• Letter sized output: "Convert intake.html with paper=Letter"
• Rerun with a curated field list: "Convert intake.html using fields=intake/fields.json"

**Artifacts (written to the output directory):**
1. base_render.pdf: the printed page without widgets
2. overlay.pdf: a single page carrying only the widgets
3. final_fill.pdf: the merged fillable document
4. fields.json: the measured controls, reusable with the fields parameter

**Best practices:** Use html_list_controls first to check the form has the controls you expect. Checkbox widgets are square and sized from the smaller box edge.`

	HTMLListControlsDescription = `List the form controls of an HTML document without starting a browser.

**When to use:** Before a conversion, to see which inputs, selects and textareas will become PDF fields and what they will be named.

**Why it's useful:** Fast static check of a source file. Names follow the same rules as the conversion: name attribute, then id, then placeholder, then "<tag>_<n>".

**Examples:**
• Sanity check: "List the controls in signup.html"
• Naming review: "Which controls in intake.html have no name attribute?"

**Best practices:** Control counts can differ from the browser's when scripts add or remove controls at load time.`

	MapFieldsDescription = `Map a measured field list onto PDF widget rectangles.

**When to use:** You have a fields.json from an earlier conversion, or one you edited by hand, and want to see where each widget will land on the page.

**Why it's useful:** Shows the exact rectangle in PDF points for every field, the widget kind, and the name the field will carry, without rendering anything.

**Examples:**
• Placement check: "Map output/fields.json for A4"
• Tighter layout: "Map fields.json with scale 0.6 on Letter paper"

**Best practices:** Coordinates are bottom-left origin. Text widgets narrower than 20pt grow to at least 40pt and shorter than 10pt grow to at least 14pt.`

	PDFFormFieldsDescription = `List the AcroForm fields of a PDF with their page, type and rectangle.

**When to use:** To verify a generated fillable PDF, or to inspect the form fields of any existing PDF.

**Why it's useful:** Confirms every page carries the expected widgets, with names, field types, border styles and placement.

**Examples:**
• Verify a conversion: "List form fields in output/final_fill.pdf"
• Audit a third-party form: "What fields does application.pdf have?"

**Best practices:** Run after html_to_fillable_pdf when the source spans several pages; each page lists the full widget set.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"html_to_fillable_pdf": HTMLToFillablePDFDescription,
	"html_list_controls":   HTMLListControlsDescription,
	"map_fields":           MapFieldsDescription,
	"pdf_form_fields":      PDFFormFieldsDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the available tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
