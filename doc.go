// Package tremote turns the torrent records reported by a Transmission
// daemon into a sorted, width-aware text table.
//
// Rendering happens in three steps:
//
//   - A [Registry] of [ColumnDefinition] values says how each field is
//     sorted, aligned, and formatted. [DefaultRegistry] holds the built-in
//     torrent columns.
//   - [Registry.Project] turns one [Record] into [Views]: the raw values in
//     a data group, human-readable text in a human group, and, for narrow
//     terminals, a compact group. [Registry.ProjectAll] collects the views
//     into a [Document].
//   - A [Renderer] sorts the document by a list of [SortDirective] values
//     and lays it out according to a [Plan].
//
// # Cells
//
// Each cell shows the first of the compact view, the human view, and the
// trimmed raw value that exists for its column. Sorting always compares the
// raw values.
//
// # Renderers
//
// [NativeRenderer] lays the table out in process, wrapping text columns to
// fit [Plan.Width]. [ExternalRenderer] streams the XML form of the document
// through xmllint, xmlstarlet, and html2text and copies the result.
//
// # Formats
//
// [Write] picks between the table, its HTML markup, and the XML, YAML, and
// JSON forms of the document. All of them list the records in sort order:
//
//	f, err := tremote.ParseFormat(flagValue)
//	tremote.Write(ctx, os.Stdout, f, tremote.NativeRenderer{}, doc, plan)
//
// # Errors
//
// The package exports sentinel errors for programmatic handling:
//
//   - [ErrUnknownColumn]: a column or sort name is not registered
//   - [ErrDuplicateColumn]: a registry defines a name twice
//   - [ErrInvalidKey]: a field key cannot be an XML element name
//   - [ErrUnsupportedFormat]: unknown format string
//   - [ErrStage]: an external render stage failed
package tremote
