package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kailas-cloud/locadex/internal/domain/listing"
	chiTransport "github.com/kailas-cloud/locadex/internal/transport/chi"
)

// readListings decodes a JSON array of listings in the HTTP wire format.
// "-" reads stdin.
func readListings(path string) ([]listing.Listing, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	return decodeListings(r)
}

func decodeListings(r io.Reader) ([]listing.Listing, error) {
	var dtos []chiTransport.ListingDTO
	if err := json.NewDecoder(r).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	out := make([]listing.Listing, len(dtos))
	for i := range dtos {
		out[i] = dtos[i].Listing()
	}
	return out, nil
}
