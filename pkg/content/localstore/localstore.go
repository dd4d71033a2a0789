// Package localstore is a content-addressed store on a filesystem. Payloads
// are keyed by their CIDv1 (raw, sha2-256) and never change once written.
package localstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-multibase"
	"github.com/spf13/afero"

	"github.com/doodlemint/doodlemint/pkg/content"
)

var log = logging.Logger("content/localstore")

var ErrImmutable = errors.New("localstore: existing object differs from payload")

// Store keeps payloads as files under a root directory.
type Store struct {
	fs      afero.Fs
	root    string
	gateway content.Gateway
	enc     multibase.Encoder
}

var (
	_ content.Publisher = (*Store)(nil)
	_ content.Fetcher   = (*Store)(nil)
)

// New creates a store rooted at root on fs. Locators are built from gateway,
// which usually points at `doodlemint gateway serve`.
func New(fs afero.Fs, root string, gateway string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localstore: root directory is required")
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating store root: %w", err)
	}
	return &Store{
		fs:      fs,
		root:    root,
		gateway: content.Gateway(gateway),
		enc:     multibase.MustNewEncoder(multibase.Base32),
	}, nil
}

// NewOS creates a store on the host filesystem.
func NewOS(root, gateway string) (*Store, error) {
	return New(afero.NewOsFs(), root, gateway)
}

func (s *Store) Publish(ctx context.Context, payload []byte) (content.Locator, error) {
	id, err := s.Put(payload)
	if err != nil {
		return "", err
	}
	return s.gateway.Locator(id), nil
}

func (s *Store) Fetch(ctx context.Context, loc content.Locator) ([]byte, error) {
	id, err := loc.CID()
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Put writes payload and returns its CID. Writing the same bytes twice is a
// no-op.
func (s *Store) Put(payload []byte) (cid.Cid, error) {
	id, err := content.RawCID(payload)
	if err != nil {
		return cid.Undef, fmt.Errorf("hashing payload: %w", err)
	}

	p := s.pathFor(id)
	if ok, err := afero.Exists(s.fs, p); err != nil {
		return cid.Undef, err
	} else if ok {
		existing, err := afero.ReadFile(s.fs, p)
		if err != nil || !bytes.Equal(existing, payload) {
			return cid.Undef, ErrImmutable
		}
		return id, nil
	}

	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return cid.Undef, fmt.Errorf("creating shard dir: %w", err)
	}
	tmp, err := afero.TempFile(s.fs, filepath.Dir(p), ".put-*")
	if err != nil {
		return cid.Undef, fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmp.Name())
		return cid.Undef, fmt.Errorf("writing payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmp.Name())
		return cid.Undef, fmt.Errorf("closing payload: %w", err)
	}
	if err := s.fs.Rename(tmp.Name(), p); err != nil {
		_ = s.fs.Remove(tmp.Name())
		return cid.Undef, fmt.Errorf("committing payload: %w", err)
	}

	log.Debugw("stored payload", "cid", id, "size", len(payload))
	return id, nil
}

// Get returns the payload for id, verifying it still hashes to id.
func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, content.ErrInvalidLocator
	}
	b, err := afero.ReadFile(s.fs, s.pathFor(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", id, content.ErrNotFound)
		}
		return nil, err
	}
	got, err := id.Prefix().Sum(b)
	if err != nil {
		return nil, fmt.Errorf("hashing stored payload: %w", err)
	}
	if !got.Equals(id) {
		return nil, fmt.Errorf("%s: %w", id, content.ErrCIDMismatch)
	}
	return b, nil
}

// Has reports whether a payload for id is stored.
func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	ok, err := afero.Exists(s.fs, s.pathFor(id))
	return err == nil && ok
}

func (s *Store) pathFor(id cid.Cid) string {
	name := id.Encode(s.enc)
	if len(name) < 4 {
		return filepath.Join(s.root, name)
	}
	// v1 CIDs share their leading characters, so shard on the tail
	return filepath.Join(s.root, name[len(name)-3:len(name)-1], name)
}
