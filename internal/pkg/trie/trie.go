package trie

// NoLimit makes SearchPrefix return every word under the prefix.
const NoLimit = -1

type TrieNode struct {
	Children    map[rune]*TrieNode
	ChildrenArr []rune
	IsEnd       bool
}

// Trie is a prefix tree over already-normalized words. It does no locking of
// its own; the owning category serializes writers against readers.
type Trie struct {
	Root  *TrieNode
	count int
}

func newNode() *TrieNode {
	return &TrieNode{Children: make(map[rune]*TrieNode)}
}

func NewTrie() *Trie {
	return &Trie{Root: newNode()}
}

// FromWords builds a trie holding every element of words.
func FromWords(words []string) *Trie {
	t := NewTrie()
	for _, w := range words {
		t.Insert(w)
	}
	return t
}

// Insert adds key and reports whether it was not already present.
func (t *Trie) Insert(key string) bool {
	node := t.Root
	for _, ch := range key {
		child, exists := node.Children[ch]
		if !exists {
			child = newNode()
			node.Children[ch] = child
			node.ChildrenArr = append(node.ChildrenArr, ch)
		}
		node = child
	}
	if node.IsEnd {
		return false
	}
	node.IsEnd = true
	t.count++
	return true
}

func (t *Trie) find(key string) *TrieNode {
	node := t.Root
	for _, ch := range key {
		child, exists := node.Children[ch]
		if !exists {
			return nil
		}
		node = child
	}
	return node
}

// Contains reports whether key was inserted as a whole word.
func (t *Trie) Contains(key string) bool {
	node := t.find(key)
	return node != nil && node.IsEnd
}

// SearchPrefix returns up to limit words starting with prefix, walking the
// subtree depth-first in child insertion order. A negative limit returns all
// of them.
func (t *Trie) SearchPrefix(prefix string, limit int) []string {
	if limit == 0 {
		return nil
	}
	node := t.find(prefix)
	if node == nil {
		return nil
	}

	var results []string
	t.collectWords(node, prefix, &results, limit)
	return results
}

func (t *Trie) collectWords(root *TrieNode, prefix string, results *[]string, limit int) {
	type entry struct {
		node  *TrieNode
		depth int // path length once ch is appended
		ch    rune
	}

	// path is shared by all entries; depth-first order guarantees
	// path[:depth-1] still spells the parent when an entry is popped.
	path := []rune(prefix)
	base := len(path)
	stack := []entry{{node: root, depth: base}}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if curr.depth > base {
			path = append(path[:curr.depth-1], curr.ch)
		} else {
			path = path[:base]
		}

		if curr.node.IsEnd {
			*results = append(*results, string(path))
			if limit > 0 && len(*results) >= limit {
				return
			}
		}

		// push in reverse so the first inserted child is visited first
		for i := len(curr.node.ChildrenArr) - 1; i >= 0; i-- {
			ch := curr.node.ChildrenArr[i]
			stack = append(stack, entry{
				node:  curr.node.Children[ch],
				depth: curr.depth + 1,
				ch:    ch,
			})
		}
	}
}

// Words returns every word in the trie.
func (t *Trie) Words() []string {
	return t.SearchPrefix("", NoLimit)
}

// Len returns the number of complete words.
func (t *Trie) Len() int {
	return t.count
}

// Clear drops every word.
func (t *Trie) Clear() {
	t.Root = newNode()
	t.count = 0
}

// Remove deletes key and prunes branches left without words.
// It reports false when key was not in the trie.
func (t *Trie) Remove(key string) bool {
	runes := []rune(key)
	node := t.Root
	path := make([]*TrieNode, 0, len(runes)+1)
	path = append(path, node)
	for _, ch := range runes {
		child, ok := node.Children[ch]
		if !ok {
			return false
		}
		node = child
		path = append(path, node)
	}
	if !node.IsEnd {
		return false
	}
	node.IsEnd = false
	t.count--

	for depth := len(runes); depth > 0; depth-- {
		n := path[depth]
		if n.IsEnd || len(n.Children) > 0 {
			break
		}
		parent := path[depth-1]
		ch := runes[depth-1]
		delete(parent.Children, ch)
		for i, c := range parent.ChildrenArr {
			if c == ch {
				parent.ChildrenArr = append(parent.ChildrenArr[:i], parent.ChildrenArr[i+1:]...)
				break
			}
		}
	}
	return true
}
