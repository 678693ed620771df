package scanner

import (
	"sort"
	"sync"

	"github.com/sadopc/godupe/internal/model"
)

type member struct {
	seq    int
	record model.FileRecord
	id     fileIdentity
}

type seqDiagnostic struct {
	seq int
	d   model.Diagnostic
}

// grouper is the digest -> members map for one scan. It is the only state
// the digest workers share.
type grouper struct {
	mu     sync.Mutex
	groups map[string][]member
	diags  []seqDiagnostic
}

func newGrouper() *grouper {
	return &grouper{groups: make(map[string][]member)}
}

func (g *grouper) add(job fileJob, sum string) {
	m := member{
		seq: job.seq,
		record: model.FileRecord{
			Path:    job.path,
			Size:    job.info.Size(),
			ModTime: job.info.ModTime(),
			Digest:  sum,
		},
		id: identityOf(job.info),
	}
	g.mu.Lock()
	g.groups[sum] = append(g.groups[sum], m)
	g.mu.Unlock()
}

func (g *grouper) fail(seq int, path string, err error) {
	g.mu.Lock()
	g.diags = append(g.diags, seqDiagnostic{seq: seq, d: model.Diagnostic{Path: path, Err: err}})
	g.mu.Unlock()
}

// duplicates returns groups with two or more members. Members are ordered by
// traversal sequence and groups by their first member, so the result does not
// depend on which worker finished first.
func (g *grouper) duplicates() []model.DuplicateGroup {
	g.mu.Lock()
	defer g.mu.Unlock()

	type ordered struct {
		first int
		group model.DuplicateGroup
	}
	var out []ordered
	for sum, members := range g.groups {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i].seq < members[j].seq })

		files := make([]model.FileRecord, len(members))
		seen := make(map[fileIdentity]bool, len(members))
		for i, m := range members {
			files[i] = m.record
			if m.id.ok {
				if seen[m.id] {
					files[i].Hardlink = true
				}
				seen[m.id] = true
			}
		}
		out = append(out, ordered{
			first: members[0].seq,
			group: model.DuplicateGroup{Digest: sum, Size: members[0].record.Size, Files: files},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].first < out[j].first })

	groups := make([]model.DuplicateGroup, len(out))
	for i := range out {
		groups[i] = out[i].group
	}
	return groups
}

func (g *grouper) diagnostics() []model.Diagnostic {
	g.mu.Lock()
	defer g.mu.Unlock()

	sort.Slice(g.diags, func(i, j int) bool { return g.diags[i].seq < g.diags[j].seq })
	out := make([]model.Diagnostic, len(g.diags))
	for i, d := range g.diags {
		out[i] = d.d
	}
	return out
}
