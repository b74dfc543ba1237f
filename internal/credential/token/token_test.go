package token

import (
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
)

type TokenSuite struct {
	suite.Suite
}

func TestTokenSuite(t *testing.T) {
	suite.Run(t, new(TokenSuite))
}

func (s *TokenSuite) TestDecodesSignedToken() {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti":    "https://auth.example//api/credential/abc-123",
		"status": "ACCEPTED",
	})
	signed, err := tok.SignedString([]byte("test-key"))
	s.Require().NoError(err)

	claims := DecodePayload(signed)
	s.Require().NotNil(claims)
	s.Equal("https://auth.example//api/credential/abc-123", claims["jti"])
	s.Equal("ACCEPTED", claims["status"])
}

func (s *TokenSuite) TestDecodesTwoSegmentToken() {
	// Some sandbox versions return header.payload with no signature segment.
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload := base64.RawURLEncoding.EncodeToString(
		[]byte(`{"jti":"https://auth.example//api/credential/abc-123","status":"ACCEPTED"}`))

	claims := DecodePayload(header + "." + payload)
	s.Require().NotNil(claims)
	s.Equal("ACCEPTED", claims["status"])
}

func (s *TokenSuite) TestRejectsStructurallyInvalidInput() {
	cases := map[string]string{
		"empty":           "",
		"single segment":  "eyJhbGciOiJub25lIn0",
		"bad base64":      "aaa.!!!!",
		"payload not json": "aaa." + base64.RawURLEncoding.EncodeToString([]byte("not-json")),
		"json array":      "aaa." + base64.RawURLEncoding.EncodeToString([]byte(`[1,2]`)),
		"whitespace":      "   ",
	}
	for name, input := range cases {
		s.Run(name, func() {
			s.Nil(DecodePayload(input))
		})
	}
}

func (s *TokenSuite) TestRepadsURLSafeAlphabet() {
	// Payload chosen so base64url output contains '-' and '_' and needs padding.
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"v":"ÿþ?>"}`))
	claims := DecodePayload("h." + payload + ".sig")
	s.Require().NotNil(claims)
	s.Equal("ÿþ?>", claims["v"])
}
