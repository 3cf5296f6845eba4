package compose

import (
	"errors"
	"fmt"
	"sort"

	"github.com/adityabisht-lab/reddit-video-generator/internal/types"
)

// ErrEmptyContent means the snapshot had no eligible comments to narrate.
var ErrEmptyContent = errors.New("compose: no eligible comments")

// Build turns a thread snapshot into a narration script: the post as line 0,
// then the top maxComments comments by score descending, ties broken by
// comment ID ascending. Identical inputs always yield an identical script.
func Build(snapshot *types.ThreadSnapshot, maxComments int) (*types.Script, error) {
	if len(snapshot.Comments) == 0 {
		return nil, ErrEmptyContent
	}

	ranked := make([]types.Comment, len(snapshot.Comments))
	copy(ranked, snapshot.Comments)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > maxComments {
		ranked = ranked[:maxComments]
	}

	script := &types.Script{Title: snapshot.Title}

	postLine := snapshot.Title
	if snapshot.Body != "" {
		postLine += ". " + snapshot.Body
	}
	script.Lines = append(script.Lines, types.ScriptLine{
		Index:  0,
		Origin: "post",
		Text:   postLine,
	})

	for i, c := range ranked {
		script.Lines = append(script.Lines, types.ScriptLine{
			Index:  i + 1,
			Origin: fmt.Sprintf("comment-%d", i+1),
			Text:   c.Body,
		})
	}
	return script, nil
}
