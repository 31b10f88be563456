package ledger

import (
	"context"       // Context for blocking calls
	"encoding/json" // JSON payloads
	"io"            // Bounded reads
	"net/http"      // HTTP client
	"net/url"       // URL parsing
	"strings"       // String manipulation

	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata" // Metaplex metadata
	"github.com/pkg/errors"                                           // Error wrapping
	"github.com/sirupsen/logrus"                                      // Logging library
)

const maxMetadataJSON = 1 << 20

// decodeMetadata reads the on-chain fields of a metadata account
func decodeMetadata(data []byte) (*Metadata, error) {
	m, err := token_metadata.MetadataDeserialize(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode metadata account")
	}
	return &Metadata{
		Name:   trimPadding(m.Data.Name),
		Symbol: trimPadding(m.Data.Symbol),
		URI:    trimPadding(m.Data.Uri),
	}, nil
}

func trimPadding(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

type metadataJSON struct {
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Attributes  json.RawMessage `json:"attributes"`
}

// maxRedirects bounds the redirects followed for one metadata document
const maxRedirects = 5

// metadataFetcher reads off-chain metadata documents, only from allowed hosts
type metadataFetcher struct {
	hc    *http.Client
	hosts map[string]bool
}

// newMetadataFetcher wraps hc so redirects are held to the same host list
func newMetadataFetcher(hc *http.Client, hosts []string) *metadataFetcher {
	f := &metadataFetcher{hosts: map[string]bool{}}
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			f.hosts[h] = true // Hostnames compare without port
		}
	}
	client := *hc // Keep the caller's transport and timeout
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.New("too many redirects")
		}
		if !f.allowed(req.URL) {
			return errors.Errorf("redirect to host %s not allowed", req.URL.Hostname())
		}
		return nil
	}
	f.hc = &client
	return f
}

// allowed reports whether u is an http(s) URL on an allowed host
func (f *metadataFetcher) allowed(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return f.hosts[strings.ToLower(u.Hostname())]
}

// resolve fills the off-chain fields from the document at meta.URI. A URI
// outside the allowed hosts, or one that does not serve JSON, leaves them empty.
func (f *metadataFetcher) resolve(ctx context.Context, meta *Metadata) {
	u, err := url.Parse(meta.URI)
	if err != nil || !f.allowed(u) {
		return // Never request hosts we do not serve metadata from
	}
	log := logrus.WithField("uri", meta.URI)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		log.WithError(err).Debug("metadata uri not requestable")
		return
	}
	resp, err := f.hc.Do(req)
	if err != nil {
		log.WithError(err).Debug("metadata uri unreachable")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}

	var doc metadataJSON
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataJSON)).Decode(&doc); err != nil {
		log.Debug("metadata uri is not json")
		return
	}
	meta.Description = doc.Description
	meta.Image = doc.Image
	if len(doc.Attributes) > 0 && string(doc.Attributes) != "null" {
		meta.Attributes = doc.Attributes
	}
}
