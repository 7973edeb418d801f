package mcpserver

const formatURI = "quire://note-format"

// NoteFormat tells tool callers how paths and bodies are interpreted.
const NoteFormat = `# Quire Note Format

## Paths

- A note is addressed by a slash-separated path: ` + "`work/2024/plan`" + `.
- Folders are never created on their own. They exist while a note lives under them
  and vanish with their last note.
- No leading or trailing slash, no empty segments, no ` + "`.`" + ` or ` + "`..`" + ` segments.
- Do not add a file extension; the server picks one.

## Bodies

A body is one of:

1. **HTML fragment** (the default). Store the inner content only, e.g.
   ` + "`<h1>Plan</h1><p>Ship it.</p>`" + `. A full document with ` + "`<html>`/`<body>`" + `
   is accepted but editors will unwrap it.
2. **Structured document**: a single JSON object, e.g.
   ` + "`{\"type\":\"doc\",\"content\":[...]}`" + `. Anything that parses as a JSON
   object is treated as a document.

New notes created from the editor start as
` + "`<h1>New Document</h1><p>Start writing...</p>`" + `.

## Conflicts

- ` + "`create_note`" + ` fails if the path is taken; use ` + "`save_note`" + ` to overwrite.
- ` + "`rename_note`" + ` fails if the target exists.
- Concurrent writers are last-write-wins.
`
