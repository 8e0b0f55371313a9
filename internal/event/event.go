// Package event resolves the pull-request context from the CI event payload.
package event

import (
	"encoding/json"
	"fmt"
	"os"
)

// Context describes the pull request a gate run evaluates.
type Context struct {
	Number  int
	Title   string
	Labels  []string
	BaseSHA string
	HeadSHA string
}

// payload mirrors the subset of the GitHub webhook document the gate needs.
type payload struct {
	PullRequest *struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Labels []struct {
			Name string `json:"name"`
		} `json:"labels"`
		Base struct {
			SHA string `json:"sha"`
		} `json:"base"`
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
}

// Load reads an event payload file. A payload without a pull_request object
// (push, schedule, manual dispatch) returns (nil, nil): the event is not
// applicable and the gate skips evaluation.
func Load(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event payload: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Context, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	if p.PullRequest == nil {
		return nil, nil
	}

	ctx := &Context{
		Number:  p.PullRequest.Number,
		Title:   p.PullRequest.Title,
		BaseSHA: p.PullRequest.Base.SHA,
		HeadSHA: p.PullRequest.Head.SHA,
	}
	for _, l := range p.PullRequest.Labels {
		ctx.Labels = append(ctx.Labels, l.Name)
	}
	return ctx, nil
}

// HasLabel reports whether the pull request carries the given label.
// Matching is exact and case-sensitive, as on the hosting platform.
func (c *Context) HasLabel(name string) bool {
	for _, l := range c.Labels {
		if l == name {
			return true
		}
	}
	return false
}
