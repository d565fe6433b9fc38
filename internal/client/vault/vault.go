package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/vaultdrive/vaultdrive/internal/utils"
)

const (
	metadataDir = ".vaultdrive"
	lockFile    = "vaultdrive.lock"

	// StateDBFile is the engine's journal+index database inside MetadataDir.
	StateDBFile = "state.db"

	// RemoteStatePath is the logical tree path the remote snapshot object is
	// tagged with. It never exists as a plain local file.
	RemoteStatePath = ".vaultdrive/state.json"
)

var (
	ErrVaultLocked = errors.New("vault locked by another process")
	ErrOutsideRoot = errors.New("path escapes vault root")
)

// NodeKind distinguishes containers (directories) from leaves (files).
type NodeKind string

const (
	KindContainer NodeKind = "container"
	KindLeaf      NodeKind = "leaf"
)

// NodeInfo describes one local tree node.
type NodeInfo struct {
	Path         string // normalized tree path, slash separated
	Kind         NodeKind
	Size         int64
	ModifiedTime time.Time
}

// Vault is the local half of the mirrored tree. All engine file access goes
// through it so tree paths stay rooted and normalized.
type Vault struct {
	Root        string
	MetadataDir string

	flock *flock.Flock
}

func New(rootDir string) (*Vault, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	metaDir := filepath.Join(root, metadataDir)
	return &Vault{
		Root:        root,
		MetadataDir: metaDir,
		flock:       flock.New(filepath.Join(metaDir, lockFile)),
	}, nil
}

// Setup creates the vault directories and takes the instance lock.
func (v *Vault) Setup() error {
	if err := utils.EnsureDir(v.Root); err != nil {
		return fmt.Errorf("failed to create vault root: %w", err)
	}
	if err := v.Lock(); err != nil {
		return err
	}
	slog.Info("vault", "root", v.Root)
	return nil
}

// Lock takes the .vaultdrive/vaultdrive.lock file so concurrent instances
// cannot mutate the same vault.
func (v *Vault) Lock() error {
	if err := utils.EnsureDir(v.MetadataDir); err != nil {
		return fmt.Errorf("failed to create metadata dir: %w", err)
	}

	locked, err := v.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock vault: %w", err)
	}
	if !locked {
		return ErrVaultLocked
	}
	return nil
}

func (v *Vault) Unlock() error {
	if !v.flock.Locked() {
		return nil
	}
	if err := v.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock vault: %w", err)
	}
	return os.Remove(v.flock.Path())
}

// StateDBPath returns the absolute path of the engine state database.
func (v *Vault) StateDBPath() string {
	return filepath.Join(v.MetadataDir, StateDBFile)
}

// AbsPath converts a tree path to an absolute filesystem path.
func (v *Vault) AbsPath(treePath string) string {
	return filepath.Join(v.Root, filepath.FromSlash(utils.NormalizeRelPath(treePath)))
}

// RelPath converts an absolute filesystem path back to a tree path.
// Returns ErrOutsideRoot when the path is not under the vault.
func (v *Vault) RelPath(absPath string) (string, error) {
	rel, err := filepath.Rel(v.Root, absPath)
	if err != nil {
		return "", err
	}
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrOutsideRoot
	}
	return utils.NormalizeRelPath(rel), nil
}

// Stat describes the node at a tree path, or nil when it does not exist.
func (v *Vault) Stat(treePath string) (*NodeInfo, error) {
	info, err := os.Stat(v.AbsPath(treePath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v.nodeInfo(treePath, info), nil
}

// Exists reports whether any node is present at the tree path.
func (v *Vault) Exists(treePath string) bool {
	_, err := os.Stat(v.AbsPath(treePath))
	return err == nil
}

// ReadLeaf returns the full content of a leaf node.
func (v *Vault) ReadLeaf(treePath string) ([]byte, error) {
	return os.ReadFile(v.AbsPath(treePath))
}

// WriteLeaf writes content to a leaf node, creating parents as needed, and
// stamps the given modification time so local and remote mtimes agree.
func (v *Vault) WriteLeaf(treePath string, content []byte, modTime time.Time) error {
	abs := v.AbsPath(treePath)
	if err := utils.WriteFileAtomic(abs, content, 0o644); err != nil {
		return err
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(abs, modTime, modTime); err != nil {
			slog.Warn("vault chtimes", "path", treePath, "error", err)
		}
	}
	return nil
}

// CreateContainer makes a directory node (and any missing parents).
func (v *Vault) CreateContainer(treePath string) error {
	return utils.EnsureDir(v.AbsPath(treePath))
}

// Remove deletes the node at the tree path. Containers are removed with
// their contents; a missing node is not an error.
func (v *Vault) Remove(treePath string) error {
	err := os.RemoveAll(v.AbsPath(treePath))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Walk enumerates every node under the vault root, skipping the metadata
// directory. The callback receives normalized tree paths.
func (v *Vault) Walk(fn func(node *NodeInfo) error) error {
	return filepath.WalkDir(v.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == v.Root {
			return nil
		}
		if d.IsDir() && path == v.MetadataDir {
			return filepath.SkipDir
		}

		treePath, relErr := v.RelPath(path)
		if relErr != nil {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(v.nodeInfo(treePath, info))
	})
}

func (v *Vault) nodeInfo(treePath string, info fs.FileInfo) *NodeInfo {
	kind := KindLeaf
	size := info.Size()
	if info.IsDir() {
		kind = KindContainer
		size = 0
	}
	return &NodeInfo{
		Path:         utils.NormalizeRelPath(treePath),
		Kind:         kind,
		Size:         size,
		ModifiedTime: info.ModTime(),
	}
}
