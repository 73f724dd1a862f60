// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	LocalSchemaNotFoundId Id = iota + 1
	LocalSchemaInvalidId
	FragmentParseFailedId
	FragmentReadFailedId
	ArtifactSourceFailedId
	OutputWriteFailedId
	ConfigLoadFailedId
	PrettierIgnoreIncompleteId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guidance with glamour using the given style
// ("dark", "light", "notty" or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	localSchemaNotFoundIssue = &Issue{
		id: LocalSchemaNotFoundId,
		mdMsg: `
# Local schema not found!

The schema-form document of this plugin could not be read.

## Things you can try:
- Check that the file exists. The default location is
~~~
src/main/resources/schemas/schema-form.json
~~~

- Point to another file:
~~~
$ schemabundle bundle --local path/to/schema-form.json
~~~

- Or set it once for the project in ` + "`schemabundle.cue`" + `:
~~~cue
local_schema_file: "${BASEDIR}/schemas/schema-form.json"
~~~`,
	}

	localSchemaInvalidIssue = &Issue{
		id: LocalSchemaInvalidId,
		mdMsg: `
# Local schema is not a valid schema-form!

The local document must be a JSON object. When it declares
` + "`gioExternalDefinitions`" + `, that member must be an object too.

## Things you can try:
- Validate the file with a JSON linter
- Make sure the root of the document is ` + "`{ ... }`" + `
- Replace a ` + "`gioExternalDefinitions`" + ` array or string with an object keyed by definition name`,
	}

	fragmentParseFailedIssue = &Issue{
		id: FragmentParseFailedId,
		mdMsg: `
# A schema fragment in a dependency is malformed!

One of the JSON files matched inside a dependency archive could not be parsed,
so no output was written.

## Things you can try:
- Narrow the entry patterns so the file is not matched:
~~~
$ schemabundle bundle --include-schema 'schemas/external/**/*.json'
~~~

- Restrict the archives that are scanned:
~~~
$ schemabundle bundle --include-artifact com.example:shared-schemas
~~~

- List what gets matched:
~~~
$ schemabundle scan
~~~`,
	}

	fragmentReadFailedIssue = &Issue{
		id: FragmentReadFailedId,
		mdMsg: `
# A dependency archive is corrupt!

An entry matched by the schema patterns could not be read from its archive.

## Things you can try:
- Re-download the dependency (for Maven, delete it from ~/.m2 and rebuild)
- Exclude the archive with ` + "`include_artifacts`" + ``,
	}

	artifactSourceFailedIssue = &Issue{
		id: ArtifactSourceFailedId,
		mdMsg: `
# Dependency archives could not be listed!

## Things you can try:
- Check the ` + "`artifacts`" + ` and ` + "`artifact_dirs`" + ` entries of your configuration
- Check the permissions of the dependency directories
- Run with ` + "`--verbose`" + ` to see every archive considered`,
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# The merged schema could not be written!

## Things you can try:
- Check that the output directory is writable
- Point the output somewhere else:
~~~
$ schemabundle bundle --output target/classes/schemas/schema-form.json
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

` + "`schemabundle.cue`" + ` or one of the ` + "`SCHEMABUNDLE_*`" + ` environment
variables holds an invalid value.

## Things you can try:
- Print the effective configuration:
~~~
$ schemabundle config show
~~~

- Write a fresh default file:
~~~
$ schemabundle config init --force
~~~`,
	}

	prettierIgnoreIncompleteIssue = &Issue{
		id: PrettierIgnoreIncompleteId,
		mdMsg: `
# Generated files are not ignored by Prettier!

The merged schema is written into the build directory. Without an ignore
entry Prettier may reformat it and break reproducible builds.

## Things you can try:
- Add the build directory to ` + "`.prettierignore`" + `:
~~~
target/
~~~`,
		extLinks: []HttpLink{"https://prettier.io/docs/en/ignore.html"},
	}

	issues = map[Id]*Issue{
		localSchemaNotFoundIssue.Id():      localSchemaNotFoundIssue,
		localSchemaInvalidIssue.Id():       localSchemaInvalidIssue,
		fragmentParseFailedIssue.Id():      fragmentParseFailedIssue,
		fragmentReadFailedIssue.Id():       fragmentReadFailedIssue,
		artifactSourceFailedIssue.Id():     artifactSourceFailedIssue,
		outputWriteFailedIssue.Id():        outputWriteFailedIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		prettierIgnoreIncompleteIssue.Id(): prettierIgnoreIncompleteIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
