// Package gitprobe implements C8: a seano.RepoProbe backed by a real .git
// history via github.com/go-git/go-git/v5, and C5's repository scanner on
// top of it (spec §4.5, §4.8).
package gitprobe

import (
	"context"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/relicta-tech/seano/internal/domain/seano"
	"github.com/relicta-tech/seano/internal/errors"
)

// Probe implements seano.RepoProbe against a working tree's .git history.
type Probe struct {
	path string
}

// New returns a Probe rooted at path. Opening is deferred to each call so
// IsRepository can answer false for a non-repository path without error.
func New(path string) *Probe {
	return &Probe{path: path}
}

func (p *Probe) open() (*git.Repository, error) {
	return git.PlainOpenWithOptions(p.path, &git.PlainOpenOptions{DetectDotGit: true})
}

// IsRepository implements seano.RepoProbe.
func (p *Probe) IsRepository(ctx context.Context, path string) (bool, error) {
	_, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if err == git.ErrRepositoryNotExists {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.KindRepository, "gitprobe.Probe.IsRepository", "opening %q", path)
	}
	return true, nil
}

// Refs implements seano.RepoProbe: it lists every tag plus every local
// branch, each paired with the commit hash it resolves to.
func (p *Probe) Refs(ctx context.Context) ([]seano.Ref, error) {
	const op = "gitprobe.Probe.Refs"
	repo, err := p.open()
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindRepository, op, "opening repository")
	}

	var out []seano.Ref
	tagIter, err := repo.Tags()
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindRepository, op, "listing tags")
	}
	defer tagIter.Close()
	if err := tagIter.ForEach(func(ref *plumbing.Reference) error {
		hash, rerr := resolveTagHash(repo, ref)
		if rerr != nil {
			return rerr
		}
		out = append(out, seano.Ref{Name: ref.Name().Short(), Hash: hash.String()})
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, errors.KindRepository, op, "iterating tags")
	}

	branchIter, err := repo.Branches()
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindRepository, op, "listing branches")
	}
	defer branchIter.Close()
	if err := branchIter.ForEach(func(ref *plumbing.Reference) error {
		out = append(out, seano.Ref{Name: ref.Name().Short(), Hash: ref.Hash().String()})
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, errors.KindRepository, op, "iterating branches")
	}
	return out, nil
}

// resolveTagHash follows an annotated tag object down to the commit it
// points at; a lightweight tag's reference already points at the commit.
func resolveTagHash(repo *git.Repository, ref *plumbing.Reference) (plumbing.Hash, error) {
	tagObj, err := repo.TagObject(ref.Hash())
	if err != nil {
		return ref.Hash(), nil
	}
	commit, err := tagObj.Commit()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return commit.Hash, nil
}

func (p *Probe) refsByHash(repo *git.Repository) (map[plumbing.Hash][]string, error) {
	const op = "gitprobe.Probe.refsByHash"
	out := map[plumbing.Hash][]string{}

	tagIter, err := repo.Tags()
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindRepository, op, "listing tags")
	}
	defer tagIter.Close()
	if err := tagIter.ForEach(func(ref *plumbing.Reference) error {
		hash, rerr := resolveTagHash(repo, ref)
		if rerr != nil {
			return rerr
		}
		out[hash] = append(out[hash], ref.Name().Short())
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, errors.KindRepository, op, "iterating tags")
	}

	branchIter, err := repo.Branches()
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindRepository, op, "listing branches")
	}
	defer branchIter.Close()
	if err := branchIter.ForEach(func(ref *plumbing.Reference) error {
		out[ref.Hash()] = append(out[ref.Hash()], ref.Name().Short())
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, errors.KindRepository, op, "iterating branches")
	}
	return out, nil
}

// Walk implements seano.RepoProbe: it yields the uncommitted pseudo-commit
// first (when the worktree is dirty), then every reachable commit from HEAD
// in reverse-chronological order (spec §4.5 items 2, 5, 6).
func (p *Probe) Walk(ctx context.Context, opts seano.WalkOptions, fn func(seano.Commit) (bool, error)) error {
	const op = "gitprobe.Probe.Walk"
	repo, err := p.open()
	if err != nil {
		return errors.Wrapf(err, errors.KindRepository, op, "opening repository")
	}

	refsByHash, err := p.refsByHash(repo)
	if err != nil {
		return err
	}

	head, err := repo.Head()
	if err != nil {
		return errors.Wrapf(err, errors.KindRepository, op, "resolving HEAD")
	}

	uncommitted, err := p.uncommittedCommit(repo, head.Hash())
	if err != nil {
		return err
	}
	if uncommitted != nil {
		cont, err := fn(*uncommitted)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}

	commitIter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return errors.Wrapf(err, errors.KindRepository, op, "walking log from HEAD")
	}
	defer commitIter.Close()

	walkErr := commitIter.ForEach(func(c *object.Commit) error {
		if cErr := ctx.Err(); cErr != nil {
			return cErr
		}
		commit, cErr := convertCommit(c, refsByHash)
		if cErr != nil {
			return cErr
		}
		cont, fErr := fn(commit)
		if fErr != nil {
			return fErr
		}
		if !cont {
			return storer.ErrStop
		}
		return nil
	})
	if walkErr != nil && walkErr != storer.ErrStop {
		return errors.Wrapf(walkErr, errors.KindRepository, op, "iterating commit log")
	}
	return nil
}

func convertCommit(c *object.Commit, refsByHash map[plumbing.Hash][]string) (seano.Commit, error) {
	const op = "gitprobe.convertCommit"
	parents := make([]string, 0, c.NumParents())
	for _, h := range c.ParentHashes {
		parents = append(parents, h.String())
	}

	changes, err := changesFor(c)
	if err != nil {
		return seano.Commit{}, errors.Wrapf(err, errors.KindRepository, op, "diffing commit %s", c.Hash)
	}

	return seano.Commit{
		Hash:    c.Hash.String(),
		Parents: parents,
		Refs:    refsByHash[c.Hash],
		Changes: changes,
	}, nil
}

// changesFor diffs a commit's tree against its first parent's tree (or the
// empty tree for a root commit), then pairs up deletes and adds that share
// an identical blob hash into exact renames (spec §4.5's "100% exact"
// rename policy). go-git's tree diff never reports copies on its own, so
// the `copied` change kind is never produced here; it is handled identically
// to `added` wherever the scanner checks for it (see DESIGN.md).
func changesFor(c *object.Commit) ([]seano.Change, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, err
		}
	}

	treeChanges, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, err
	}
	return classifyTreeChanges(treeChanges)
}

func classifyTreeChanges(raw object.Changes) ([]seano.Change, error) {
	var adds, deletes, modifies []*object.Change
	for _, c := range raw {
		action, err := c.Action()
		if err != nil {
			return nil, err
		}
		switch action {
		case merkletrie.Insert:
			adds = append(adds, c)
		case merkletrie.Delete:
			deletes = append(deletes, c)
		default:
			modifies = append(modifies, c)
		}
	}

	out := make([]seano.Change, 0, len(raw))
	usedAdds := make(map[int]bool, len(adds))
	for _, d := range deletes {
		paired := -1
		for i, a := range adds {
			if usedAdds[i] {
				continue
			}
			if a.To.TreeEntry.Hash == d.From.TreeEntry.Hash {
				paired = i
				break
			}
		}
		if paired >= 0 {
			usedAdds[paired] = true
			out = append(out, seano.Change{
				Kind:      seano.ChangeRenamedExact,
				Path:      adds[paired].To.Name,
				OtherPath: d.From.Name,
			})
			continue
		}
		out = append(out, seano.Change{Kind: seano.ChangeDeleted, Path: d.From.Name})
	}
	for i, a := range adds {
		if usedAdds[i] {
			continue
		}
		out = append(out, seano.Change{Kind: seano.ChangeAdded, Path: a.To.Name})
	}
	for _, m := range modifies {
		out = append(out, seano.Change{Kind: seano.ChangeModified, Path: m.To.Name})
	}
	return out, nil
}

// uncommittedCommit builds the synthetic pre-HEAD commit from worktree
// status, or returns nil when the tree is clean (spec §4.5 item 5).
func (p *Probe) uncommittedCommit(repo *git.Repository, headHash plumbing.Hash) (*seano.Commit, error) {
	const op = "gitprobe.Probe.uncommittedCommit"
	wt, err := repo.Worktree()
	if err != nil {
		if err == git.ErrIsBareRepository {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.KindRepository, op, "getting worktree")
	}
	status, err := wt.Status()
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindRepository, op, "getting worktree status")
	}
	if status.IsClean() {
		return nil, nil
	}

	paths := make([]string, 0, len(status))
	for path := range status {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	changes := make([]seano.Change, 0, len(paths))
	for _, path := range paths {
		kind, ok := classifyWorktreeStatus(status[path])
		if !ok {
			continue
		}
		changes = append(changes, seano.Change{Kind: kind, Path: path})
	}

	return &seano.Commit{
		Hash:    seano.UncommittedSentinel,
		Parents: []string{headHash.String()},
		Changes: changes,
	}, nil
}

// classifyWorktreeStatus prefers the staged status over the worktree status
// for a path present in both, since staged content is what would be
// committed (spec §4.8).
func classifyWorktreeStatus(s *git.FileStatus) (seano.ChangeKind, bool) {
	code := s.Staging
	if code == git.Unmodified {
		code = s.Worktree
	}
	switch code {
	case git.Untracked, git.Added:
		return seano.ChangeAdded, true
	case git.Deleted:
		return seano.ChangeDeleted, true
	case git.Modified, git.Renamed, git.Copied, git.UpdatedButUnmerged:
		return seano.ChangeModified, true
	default:
		return seano.ChangeModified, false
	}
}
