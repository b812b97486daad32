package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/models"
)

type fakeNode struct {
	id     string
	parent string
	name   string
	dir    bool
	data   []byte
}

// fakeStorage is an in-memory folder tree that logs every call as
// "op arg" and lets tests inject failures per call.
type fakeStorage struct {
	mu    sync.Mutex
	seq   int
	nodes map[string]*fakeNode
	calls []string
	fail  func(op, arg string) error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{nodes: map[string]*fakeNode{}}
}

func (f *fakeStorage) do(op, arg string) error {
	f.calls = append(f.calls, op+" "+arg)
	if f.fail != nil {
		return f.fail(op, arg)
	}
	return nil
}

func (f *fakeStorage) add(parent, name string, dir bool, data []byte) string {
	f.seq++
	id := fmt.Sprintf("r%d", f.seq)
	f.nodes[id] = &fakeNode{id: id, parent: parent, name: name, dir: dir, data: data}
	return id
}

func (f *fakeStorage) FolderExists(ctx context.Context, parentID, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.do("exists", name); err != nil {
		return "", false, err
	}
	for _, n := range f.nodes {
		if n.dir && n.parent == parentID && n.name == name {
			return n.id, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeStorage) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.do("mkdir", name); err != nil {
		return "", err
	}
	return f.add(parentID, name, true, nil), nil
}

func (f *fakeStorage) Upload(ctx context.Context, localPath, parentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.do("upload", filepath.Base(localPath)); err != nil {
		return "", err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	return f.add(parentID, filepath.Base(localPath), false, data), nil
}

func (f *fakeStorage) Replace(ctx context.Context, remoteID, localPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.do("replace", remoteID); err != nil {
		return "", err
	}
	n, ok := f.nodes[remoteID]
	if !ok {
		return "", fmt.Errorf("%w: no such file %s", common.ErrRemote, remoteID)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	n.data = data
	return remoteID, nil
}

func (f *fakeStorage) Download(ctx context.Context, remoteID, destPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.do("download", remoteID); err != nil {
		return err
	}
	n, ok := f.nodes[remoteID]
	if !ok || n.dir {
		return fmt.Errorf("%w: no such file %s", common.ErrRemote, remoteID)
	}
	return os.WriteFile(destPath, n.data, 0o600)
}

func (f *fakeStorage) IDExists(ctx context.Context, remoteID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.do("id_exists", remoteID); err != nil {
		return false, err
	}
	_, ok := f.nodes[remoteID]
	return ok, nil
}

func (f *fakeStorage) Walk(ctx context.Context, rootID string) (*models.RemoteNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.do("walk", rootID); err != nil {
		return nil, err
	}
	root := &models.RemoteNode{ID: rootID, IsDir: true}
	if n, ok := f.nodes[rootID]; ok {
		root.Name = n.name
	}
	f.fill(root)
	return root, nil
}

func (f *fakeStorage) fill(node *models.RemoteNode) {
	for _, n := range f.nodes {
		if n.parent != node.ID {
			continue
		}
		c := &models.RemoteNode{ID: n.id, Name: n.name, IsDir: n.dir}
		if n.dir {
			f.fill(c)
		}
		node.Children = append(node.Children, c)
	}
	sort.Slice(node.Children, func(i, j int) bool { return node.Children[i].Name < node.Children[j].Name })
}

func (f *fakeStorage) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// indexes returns the positions of calls starting with prefix.
func (f *fakeStorage) indexes(prefix string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for i, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, i)
		}
	}
	return out
}

func (f *fakeStorage) folders() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, node := range f.nodes {
		if node.dir {
			n++
		}
	}
	return n
}
