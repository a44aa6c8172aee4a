package ingest

import "github.com/flemzord/tdsta/internal/knowledge"

// Default source roots, used as fallback links when no topic matches.
var (
	DefaultForumRoot = knowledge.Link{
		URL:  "https://discourse.onlinedegree.iitm.ac.in/",
		Text: "TDS Course Discourse Forum",
	}
	DefaultSiteRoot = knowledge.Link{
		URL:  "https://tds.s-anand.net/",
		Text: "TDS Course Website",
	}
)

// SourceRoots are the entry points of the two ingested sources.
type SourceRoots struct {
	Forum knowledge.Link
	Site  knowledge.Link
}

// DefaultRoots returns the built-in forum and site roots.
func DefaultRoots() SourceRoots {
	return SourceRoots{Forum: DefaultForumRoot, Site: DefaultSiteRoot}
}

// Links returns the roots as an ordered fallback list: forum first.
func (r SourceRoots) Links() []knowledge.Link {
	return []knowledge.Link{r.Forum, r.Site}
}
