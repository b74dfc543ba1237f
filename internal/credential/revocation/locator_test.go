package revocation

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type LocatorSuite struct {
	suite.Suite
}

func TestLocatorSuite(t *testing.T) {
	suite.Run(t, new(LocatorSuite))
}

func (s *LocatorSuite) TestNormalizePrefix() {
	cases := map[string]string{
		"":        "",
		"   ":     "",
		"/":       "",
		"v2":      "/v2",
		"/v2":     "/v2",
		"/v2/":    "/v2",
		"//v2//":  "/v2",
		"v2/sand": "/v2/sand",
	}
	for in, want := range cases {
		s.Equal(want, NormalizePrefix(in), "input %q", in)
	}
}

func (s *LocatorSuite) TestStripPrefixSuffix() {
	s.Equal("https://api.example", StripPrefixSuffix("https://api.example/v2", "/v2"))
	s.Equal("https://api.example", StripPrefixSuffix("https://api.example", "/v2"))
	s.Equal("https://api.example", StripPrefixSuffix("https://api.example", ""))
	s.Equal("", StripPrefixSuffix("", "/v2"))
}

func (s *LocatorSuite) TestComputeWithPrefix() {
	d := Compute(Input{
		CID:           "abc-123",
		RoutingPrefix: "/v2",
		BaseURL:       "https://api.example",
	})

	s.Equal("/v2/api/credential/abc-123/revocation", d.Path)
	s.Equal("https://api.example/v2/api/credential/abc-123/revocation", d.URL)
	s.Equal("/api/credential/abc-123/revocation", d.DisplayPath)
	s.Equal("https://api.example/api/credential/abc-123/revocation", d.DisplayURL)
}

func (s *LocatorSuite) TestComputeStripsPrefixFromDisplayBase() {
	d := Compute(Input{
		CID:           "abc-123",
		RoutingPrefix: "/v2",
		BaseURL:       "https://api.example/v2",
	})

	s.Equal("https://api.example/v2/v2/api/credential/abc-123/revocation", d.URL)
	s.Equal("https://api.example/api/credential/abc-123/revocation", d.DisplayURL)
}

func (s *LocatorSuite) TestComputeNormalizesCID() {
	d := Compute(Input{
		CID:     `"https://auth.example/api/credential/abc-123"`,
		BaseURL: "https://api.example",
	})
	s.Equal("/api/credential/abc-123/revocation", d.Path)
}

func (s *LocatorSuite) TestStoredFallbacks() {
	d := Compute(Input{
		StoredPath:        "/api/credential/old/revocation",
		StoredURL:         "https://api.example/api/credential/old/revocation",
		StoredDisplayPath: "/api/credential/old/revocation",
		StoredDisplayURL:  "https://api.example/api/credential/old/revocation",
	})

	s.Equal("/api/credential/old/revocation", d.Path)
	s.Equal("https://api.example/api/credential/old/revocation", d.URL)
	s.Equal("/api/credential/old/revocation", d.DisplayPath)
	s.Equal("https://api.example/api/credential/old/revocation", d.DisplayURL)
}

// Display fields stay empty rather than inherit the prefixed internal
// values when nothing prefix-free is available.
func (s *LocatorSuite) TestDisplayNeverFallsBackToPrefixedValues() {
	d := Compute(Input{
		RoutingPrefix: "/v2",
		BaseURL:       "https://api.example",
		StoredPath:    "/v2/api/credential/abc-123/revocation",
		StoredURL:     "https://api.example/v2/api/credential/abc-123/revocation",
	})

	s.Equal("/v2/api/credential/abc-123/revocation", d.Path)
	s.Empty(d.DisplayPath)
	s.Empty(d.DisplayURL)
}

// Feeding Compute its own output back as the stored values reproduces the
// same result.
func (s *LocatorSuite) TestComputeIsIdempotent() {
	first := Compute(Input{
		CID:           "abc-123",
		RoutingPrefix: "/v2",
		BaseURL:       "https://api.example",
	})
	second := Compute(Input{
		CID:               "abc-123",
		RoutingPrefix:     "/v2",
		BaseURL:           "https://api.example",
		StoredPath:        first.Path,
		StoredURL:         first.URL,
		StoredDisplayPath: first.DisplayPath,
		StoredDisplayURL:  first.DisplayURL,
	})
	s.Equal(first, second)

	// And with the CID gone, stored values keep the affordance alive.
	degraded := Compute(Input{
		RoutingPrefix:     "/v2",
		BaseURL:           "https://api.example",
		StoredPath:        first.Path,
		StoredURL:         first.URL,
		StoredDisplayPath: first.DisplayPath,
		StoredDisplayURL:  first.DisplayURL,
	})
	s.Equal(first, degraded)
}
