package mcpserver

// CaseFormatContract describes the case folder layout and record fields
// that LLM consumers should follow when saving cases.
const CaseFormatContract = `# Cold Case Record Format

Each case lives in its own folder under the catalog root.

## Layout

` + "```" + `text
<catalog root>/
  jane-doe/
    meta.json        # REQUIRED (meta.yaml or meta.yml also accepted)
    index.md         # OPTIONAL long-form narrative, Markdown
  photos/
    jane.jpg         # referenced from meta.json "photo"
` + "```" + `

Folders whose name contains "templates" or "example" are ignored.

## Record

` + "```" + `json
{
  "id": "jane-doe",
  "name": "Jane Doe",
  "location": "Kelowna, BC",
  "status": "Unsolved",
  "description": "Short summary shown in lists.",
  "photo": "jane.jpg",
  "date": {"year": 1998, "month": 5, "day": 3, "precision": "exact"},
  "references": ["https://example.org/article"]
}
` + "```" + `

## Rules

1. **id** is the unique key. Saving an existing id replaces that case; an
   empty id creates a new case with a generated id. On disk the folder name
   is used when id is missing.
2. **name**, **location** and **description** are required and must not be
   blank.
3. **status** is one of ` + "`" + `Unsolved` + "`" + `, ` + "`" + `Solved` + "`" + `, ` + "`" + `Cold Case` + "`" + ` unless the
   server is configured with other values.
4. **date.year** is required and positive. **precision** is ` + "`" + `year` + "`" + `
   (default), ` + "`" + `month` + "`" + ` (needs month 1-12) or ` + "`" + `exact` + "`" + ` (needs month and
   day 1-31). Dates render as 1998, 5/1998 or 5/3/1998.
5. **references** are absolute http(s) URLs. When saving, a
   ` + "`" + `references_text` + "`" + ` string with one URL per line is appended; blank lines
   are dropped.
6. **content** (the index.md body) is preferred over description for the
   detailed view. YAML frontmatter in index.md is stripped.
7. Saves live in memory only and are lost when the catalog reloads.
`
