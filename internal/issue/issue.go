// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ManifestNotFoundId Id = iota + 1
	BakeFileNotFoundId
	DockerfileNotFoundId
	ValidatorNotFoundId
	ValidationTimedOutId
	TransformerUnavailableId
	CloneFailedId
	InvalidRepositoryURLId
	ConfigLoadFailedId
	RetriesExhaustedId
)

type MarkdownMsg string

type HttpLink string

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

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No ViaCBSfile found!

The repository has no ViaCBSfile at its root, so there is no platform or build
configuration to convert the Dockerfile against.

## Things you can try:
- Add a ViaCBSfile that declares the build stage:
~~~groovy
dockerBakeFile "docker-bake.hcl"
buildAs("linux/amd64") {
    image = "golang:1.25"
}
~~~

- Or run the conversion directly with an explicit platform:
~~~
$ stagecraft convert ./workspace/myrepo --dockerfile Dockerfile --platform linux/amd64
~~~`,
	}

	bakeFileNotFoundIssue = &Issue{
		id: BakeFileNotFoundId,
		mdMsg: `
# Bake file not found!

Validation runs ` + "`docker buildx bake`" + ` against a bake file that sits next to the
converted Dockerfile. Without it the build cannot be validated at all, so the
conversion stops instead of retrying.

## Things you can try:
- Scaffold the default bake file:
~~~
$ stagecraft run https://github.com/org/repo
~~~

- Or point at an existing one:
~~~
$ stagecraft convert . --dockerfile Dockerfile --platform linux/amd64 --bake-file docker-bake.hcl
~~~`,
	}

	dockerfileNotFoundIssue = &Issue{
		id: DockerfileNotFoundId,
		mdMsg: `
# Dockerfile not found!

The build description referenced by the bake file (or the repository root
` + "`Dockerfile`" + `) does not exist.

## Things you can try:
- Check the ` + "`dockerfile`" + ` attribute of the first bake target
- Make sure the path stays inside the repository
- Pass the path explicitly with ` + "`--dockerfile`",
	}

	validatorNotFoundIssue = &Issue{
		id: ValidatorNotFoundId,
		mdMsg: `
# Docker buildx not found!

The validator shells out to ` + "`docker buildx bake`" + `. Either Docker is not installed
or the buildx plugin is missing.

## Things you can try:
- Check the plugin is available:
~~~
$ docker buildx version
~~~

- Point stagecraft at another binary in your config:
~~~cue
validator: binary: "/usr/local/bin/docker"
~~~`,
		extLinks: []HttpLink{"https://docs.docker.com/build/buildx/install/"},
	}

	validationTimedOutIssue = &Issue{
		id: ValidationTimedOutId,
		mdMsg: `
# Validation timed out!

The bake build did not finish inside the configured time limit.

## Things you can try:
- Raise the limit:
~~~cue
validator: timeout: "10m"
~~~
- Warm the builder cache by running the bake once by hand`,
	}

	transformerUnavailableIssue = &Issue{
		id: TransformerUnavailableId,
		mdMsg: `
# Transformer unavailable!

The language model endpoint could not be reached or rejected the request.

## Things you can try:
- Export an API key:
~~~
$ export GOOGLE_API_KEY=...
~~~
- Check ` + "`transformer.endpoint`" + ` and ` + "`transformer.model`" + ` in your config`,
		extLinks: []HttpLink{"https://ai.google.dev/gemini-api/docs/api-key"},
	}

	cloneFailedIssue = &Issue{
		id: CloneFailedId,
		mdMsg: `
# Failed to clone repository!

## Things you can try:
- Verify the URL and your network connection
- For private repositories, make sure your git credentials are configured
- Remove a stale checkout under the workspace directory and retry`,
	}

	invalidRepositoryURLIssue = &Issue{
		id: InvalidRepositoryURLId,
		mdMsg: `
# Invalid repository URL!

Accepted forms:
- ` + "`https://github.com/org/repo`" + `
- ` + "`git@github.com:org/repo.git`" + `
- ` + "`ssh://git@github.com/org/repo.git`",
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Print the effective configuration:
~~~
$ stagecraft config show
~~~
- Regenerate a default file:
~~~
$ stagecraft config init
~~~`,
	}

	retriesExhaustedIssue = &Issue{
		id: RetriesExhaustedId,
		mdMsg: `
# Validation never passed!

The converted Dockerfile was written, but every attempt failed validation. The
last validator output is shown above.

## Things you can try:
- Allow more attempts:
~~~
$ stagecraft convert . --dockerfile Dockerfile --platform linux/amd64 --max-attempts 4
~~~
- Edit the derived ` + "`Dockerfile-argo`" + ` by hand and run ` + "`stagecraft validate`",
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():       manifestNotFoundIssue,
		bakeFileNotFoundIssue.Id():       bakeFileNotFoundIssue,
		dockerfileNotFoundIssue.Id():     dockerfileNotFoundIssue,
		validatorNotFoundIssue.Id():      validatorNotFoundIssue,
		validationTimedOutIssue.Id():     validationTimedOutIssue,
		transformerUnavailableIssue.Id(): transformerUnavailableIssue,
		cloneFailedIssue.Id():            cloneFailedIssue,
		invalidRepositoryURLIssue.Id():   invalidRepositoryURLIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		retriesExhaustedIssue.Id():       retriesExhaustedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
