package doctree

// index maps normalized paths and slugs to nodes of one tree value. It is
// rebuilt whenever the tree is loaded or mutated, so the pointers never
// outlive the tree they were taken from.
type index struct {
	byPath  map[string]*PageNode
	bySlug  map[string]*PageNode
	parents map[*PageNode]*PageNode

	dupPaths []string
	dupSlugs []string
}

func buildIndex(t *Tree) *index {
	idx := &index{
		byPath:  make(map[string]*PageNode),
		bySlug:  make(map[string]*PageNode),
		parents: make(map[*PageNode]*PageNode),
	}
	t.Walk(func(n, parent *PageNode) bool {
		idx.parents[n] = parent
		p := normalizeStored(n.Path)
		if _, ok := idx.byPath[p]; ok {
			idx.dupPaths = append(idx.dupPaths, p)
		} else {
			idx.byPath[p] = n
		}
		if n.Slug == "" {
			return true
		}
		if _, ok := idx.bySlug[n.Slug]; ok {
			idx.dupSlugs = append(idx.dupSlugs, n.Slug)
		} else {
			idx.bySlug[n.Slug] = n
		}
		return true
	})
	return idx
}

// slugOwner returns the node holding slug unless it is the node stored at
// normalized path p.
func (idx *index) slugOwner(slug, p string) *PageNode {
	owner, ok := idx.bySlug[slug]
	if !ok {
		return nil
	}
	if normalizeStored(owner.Path) == p {
		return nil
	}
	return owner
}

func (idx *index) siblings(t *Tree, n *PageNode) *[]*PageNode {
	parent := idx.parents[n]
	if parent == nil {
		return &t.Pages
	}
	return &parent.Children
}

// visible reports whether n and every ancestor of n are public.
func (idx *index) visible(n *PageNode) bool {
	for ; n != nil; n = idx.parents[n] {
		if !n.IsPublic {
			return false
		}
	}
	return true
}
