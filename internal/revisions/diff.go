// Package revisions compares stored snapshots of a submission.
package revisions

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/stories1001/publisher/internal/entities"
)

type Op string

const (
	OpEqual  Op = "equal"
	OpInsert Op = "insert"
	OpDelete Op = "delete"
)

type Change struct {
	Op   Op     `json:"op"`
	Text string `json:"text"`
}

type Diff struct {
	SubmissionID uint     `json:"submission_id"`
	From         int      `json:"from"`
	To           int      `json:"to"`
	FromTitle    string   `json:"from_title"`
	ToTitle      string   `json:"to_title"`
	TitleChanged bool     `json:"title_changed"`
	Changes      []Change `json:"changes"`
	Insertions   int      `json:"insertions"`
	Deletions    int      `json:"deletions"`
	Patch        string   `json:"patch"`
}

// Compare produces a line-level diff of two revisions' content plus a
// patch in diff-match-patch text format.
func Compare(from, to *entities.Revision) *Diff {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	a, b, lines := dmp.DiffLinesToChars(from.Content, to.Content)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	d := &Diff{
		SubmissionID: from.SubmissionID,
		From:         from.Number,
		To:           to.Number,
		FromTitle:    from.Title,
		ToTitle:      to.Title,
		TitleChanged: from.Title != to.Title,
		Changes:      make([]Change, 0, len(diffs)),
	}

	for _, df := range diffs {
		var op Op
		switch df.Type {
		case diffmatchpatch.DiffInsert:
			op = OpInsert
			d.Insertions += countLines(df.Text)
		case diffmatchpatch.DiffDelete:
			op = OpDelete
			d.Deletions += countLines(df.Text)
		default:
			op = OpEqual
		}
		d.Changes = append(d.Changes, Change{Op: op, Text: df.Text})
	}

	d.Patch = dmp.PatchToText(dmp.PatchMake(from.Content, diffs))
	return d
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
