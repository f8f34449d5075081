package tools

import (
	"fmt"
	"strings"
)

// ResolveErrorKind classifies a failed lookup
type ResolveErrorKind int

const (
	ResolveNotFound ResolveErrorKind = iota
	ResolveAmbiguous
	ResolveNeedServer
	ResolveNoServers
)

// ResolveError is returned when a server or channel identifier does not
// name exactly one target.
type ResolveError struct {
	Kind       ResolveErrorKind
	What       string // "server" or "channel"
	Ident      string
	Scope      string   // server the search was limited to, if any
	Candidates []string // ambiguous matches, or what is available on not-found
}

func (e *ResolveError) Error() string {
	switch e.Kind {
	case ResolveAmbiguous:
		return fmt.Sprintf("%s %q is ambiguous, it matches: %s. Specify the server or use the ID",
			e.What, e.Ident, strings.Join(e.Candidates, ", "))
	case ResolveNeedServer:
		return fmt.Sprintf("the bot is in several servers, specify one of: %s", strings.Join(e.Candidates, ", "))
	case ResolveNoServers:
		return "the bot is not connected to any server"
	default:
		msg := fmt.Sprintf("%s %q not found", e.What, e.Ident)
		if e.Scope != "" {
			msg += " in " + e.Scope
		}
		if len(e.Candidates) > 0 {
			msg += ". Available: " + strings.Join(e.Candidates, ", ")
		}
		return msg
	}
}

// maxHintCandidates caps the "Available:" hint on not-found errors
const maxHintCandidates = 15

func cleanIdent(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	return strings.TrimSpace(s)
}

// ResolveContainer picks one server by ID, then by case-insensitive name.
// An empty ident is accepted only when there is exactly one server.
func ResolveContainer(containers []Container, ident string) (*Container, error) {
	if len(containers) == 0 {
		return nil, &ResolveError{Kind: ResolveNoServers, What: "server"}
	}

	ident = cleanIdent(ident)
	if ident == "" {
		if len(containers) == 1 {
			return &containers[0], nil
		}
		return nil, &ResolveError{Kind: ResolveNeedServer, What: "server", Candidates: containerLabels(containers)}
	}

	for i := range containers {
		if containers[i].ID == ident {
			return &containers[i], nil
		}
	}

	var matches []int
	for i := range containers {
		if strings.EqualFold(containers[i].Name, ident) {
			matches = append(matches, i)
		}
	}

	switch len(matches) {
	case 1:
		return &containers[matches[0]], nil
	case 0:
		return nil, &ResolveError{Kind: ResolveNotFound, What: "server", Ident: ident, Candidates: limitHint(containerLabels(containers))}
	default:
		labels := make([]string, len(matches))
		for i, idx := range matches {
			labels[i] = fmt.Sprintf("%s (%s)", containers[idx].Name, containers[idx].ID)
		}
		return nil, &ResolveError{Kind: ResolveAmbiguous, What: "server", Ident: ident, Candidates: labels}
	}
}

// ResolveLocation picks one channel by ID, then by case-insensitive name.
// With containerIdent set the search is limited to that server. Without it a
// single server is searched implicitly; with several servers every server is
// searched and a name found in more than one is ambiguous.
func ResolveLocation(containers []Container, ident, containerIdent string) (*Container, *Location, error) {
	if len(containers) == 0 {
		return nil, nil, &ResolveError{Kind: ResolveNoServers, What: "server"}
	}

	ident = cleanIdent(ident)
	if ident == "" {
		return nil, nil, &ResolveError{Kind: ResolveNotFound, What: "channel"}
	}

	scope := containers
	scopeName := ""
	if cleanIdent(containerIdent) != "" || len(containers) == 1 {
		c, err := ResolveContainer(containers, containerIdent)
		if err != nil {
			return nil, nil, err
		}
		scope = []Container{*c}
		scopeName = c.Name
	}

	for ci := range scope {
		for li := range scope[ci].Locations {
			if scope[ci].Locations[li].ID == ident {
				return &scope[ci], &scope[ci].Locations[li], nil
			}
		}
	}

	type match struct{ ci, li int }
	var matches []match
	for ci := range scope {
		for li := range scope[ci].Locations {
			if strings.EqualFold(scope[ci].Locations[li].Name, ident) {
				matches = append(matches, match{ci, li})
			}
		}
	}

	switch len(matches) {
	case 1:
		m := matches[0]
		return &scope[m.ci], &scope[m.ci].Locations[m.li], nil
	case 0:
		var names []string
		for _, c := range scope {
			for _, l := range c.Locations {
				names = append(names, "#"+l.Name)
			}
		}
		return nil, nil, &ResolveError{Kind: ResolveNotFound, What: "channel", Ident: ident, Scope: scopeName, Candidates: limitHint(names)}
	default:
		labels := make([]string, len(matches))
		for i, m := range matches {
			c := scope[m.ci]
			l := c.Locations[m.li]
			labels[i] = fmt.Sprintf("#%s in %s (%s)", l.Name, c.Name, l.ID)
		}
		return nil, nil, &ResolveError{Kind: ResolveAmbiguous, What: "channel", Ident: ident, Candidates: labels}
	}
}

func containerLabels(containers []Container) []string {
	labels := make([]string, len(containers))
	for i, c := range containers {
		labels[i] = fmt.Sprintf("%s (%s)", c.Name, c.ID)
	}
	return labels
}

func limitHint(names []string) []string {
	if len(names) <= maxHintCandidates {
		return names
	}
	out := append([]string{}, names[:maxHintCandidates]...)
	return append(out, fmt.Sprintf("and %d more", len(names)-maxHintCandidates))
}
