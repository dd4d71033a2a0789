package cmdutil

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ipfs/go-cid"
)

// ContentCID parses the CID out of a content path. A content path can take
// several forms:
//
//   - /ipfs/<cid>
//   - ipfs://<cid>
//   - http(s)://<gateway host>/ipfs/<cid>
//   - <cid>
//
// Objects are single raw blocks, so a trailing subpath is an error.
func ContentCID(pathStr string) (cid.Cid, error) {
	var cidStr string
	switch {
	case strings.HasPrefix(pathStr, "/"):
		rest, ok := strings.CutPrefix(pathStr, "/ipfs/")
		if !ok {
			return cid.Undef, fmt.Errorf("invalid path, only /ipfs/ is supported: %q", pathStr)
		}
		cidStr = rest

	case strings.Contains(pathStr, "://"):
		u, err := url.Parse(pathStr)
		if err != nil {
			return cid.Undef, fmt.Errorf("parsing URL %q: %w", pathStr, err)
		}
		switch u.Scheme {
		case "ipfs":
			cidStr = u.Host + strings.TrimSuffix(u.Path, "/")
		case "http", "https":
			_, rest, ok := strings.Cut(u.Path, "/ipfs/")
			if !ok {
				return cid.Undef, fmt.Errorf("gateway URL has no /ipfs/ path: %q", pathStr)
			}
			cidStr = rest
		default:
			return cid.Undef, fmt.Errorf("invalid URI, only ipfs:// and gateway URLs are supported: %q", pathStr)
		}

	default:
		cidStr = pathStr
	}

	cidStr = strings.TrimSuffix(cidStr, "/")
	if strings.Contains(cidStr, "/") {
		return cid.Undef, fmt.Errorf("subpaths are not supported: %q", pathStr)
	}
	id, err := cid.Parse(cidStr)
	if err != nil {
		return cid.Undef, fmt.Errorf("parsing CID %q: %w", cidStr, err)
	}
	return id, nil
}
