package mcpserver

// ZettelFormatContract describes the canonical zettel format that
// LLM consumers should follow when creating or updating zettels.
const ZettelFormatContract = `# Zettel Format Contract

Every document stored in the vault MUST follow this structure.

## Structure (Markdown dialect)

` + "```" + `markdown
# Human-readable title

Optional introductory text before the first section heading.

## Section heading

Section body in plain Markdown.

<!--- attributes --->
creation_date: 2025-01-15 09:30
zlinks: topics/other.md,topics/another.md
state: open
due_date: 2025-02-01
` + "```" + `

## Rules

1. **Everything is optional.** A zettel may omit the title, the sections,
   or the attribute block; an empty document is valid.
2. **The title** is a single ` + "`" + `# ` + "`" + ` heading on the first line.
   Sections start with ` + "`" + `## ` + "`" + ` headings.
3. **The attribute block** comes last, after the ` + "`" + `<!--- attributes --->` + "`" + `
   marker line. Each attribute is one ` + "`" + `key: value` + "`" + ` line; keys must be
   unique within a zettel.
4. **Date-typed attributes.** Any key containing "date" is parsed as a
   date. Accepted forms include ` + "`" + `2025-01-15` + "`" + `, ` + "`" + `2025-01-15 09:30` + "`" + `, and
   RFC 3339. Values that do not parse are kept as plain text.
5. **zlinks** holds comma-separated paths of related zettels and feeds
   the link graph. ` + "`" + `creation_date` + "`" + ` is set automatically when absent and
   preserved across edits.
6. **Encoding** is UTF-8 with a trailing newline. Use forward slashes in
   paths.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It returns a ` + "`" + `markdownImage` + "`" + ` field ready to paste into a section body.
- Assets are stored in the shared ` + "`" + `attachments/` + "`" + ` directory (flat, no sub-folders).
- Reference them with the absolute path: ` + "`" + `![description](/attachments/filename.png)` + "`" + `
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.

## Example

` + "```" + `markdown
# Weekly standup 2025-01-20

## Notes

Attendees: Alice, Bob.

![Whiteboard photo](/attachments/standup-2025-01-20.jpg)

## Action items

Alice to review the design doc.

<!--- attributes --->
creation_date: 2025-01-20 10:00
zlinks: people/alice.md,projects/design-doc.md
state: open
` + "```" + `
`
