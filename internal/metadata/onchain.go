package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/solana"
)

// MetaplexProgramID is the Token Metadata program.
const MetaplexProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

var errNoMetadataAccount = errors.New("no metaplex metadata account")

// OnChainSource reads the Metaplex metadata account of a mint over RPC.
// It has no market data; it exists so fresh mints still get their real ticker.
type OnChainSource struct {
	rpc solana.RPCClient
}

// NewOnChainSource creates an RPC-backed source.
func NewOnChainSource(rpc solana.RPCClient) *OnChainSource {
	return &OnChainSource{rpc: rpc}
}

// Name implements Source.
func (s *OnChainSource) Name() string { return "onchain" }

// Fetch implements Source.
func (s *OnChainSource) Fetch(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	pda, err := MetadataPDA(mint)
	if err != nil {
		return nil, err
	}
	info, err := s.rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return nil, fmt.Errorf("get metadata account: %w", err)
	}
	if info == nil {
		return nil, errNoMetadataAccount
	}

	name, symbol, err := parseMetaplexData(info.Data)
	if err != nil {
		return nil, err
	}
	return &domain.TokenMetadata{Mint: mint, Name: name, Symbol: symbol}, nil
}

// MetadataPDA derives the Metaplex metadata address of mint.
// Seeds: ["metadata", program_id, mint].
func MetadataPDA(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil || len(mintBytes) != 32 {
		return "", fmt.Errorf("invalid mint %q", mint)
	}
	programBytes, err := base58.Decode(MetaplexProgramID)
	if err != nil {
		return "", fmt.Errorf("decode program id: %w", err)
	}

	pda := findProgramAddress([][]byte{[]byte("metadata"), programBytes, mintBytes}, programBytes)
	if pda == "" {
		return "", fmt.Errorf("no valid bump for %s", mint)
	}
	return pda, nil
}

// findProgramAddress returns the first off-curve hash, searching bumps 255 down to 1.
func findProgramAddress(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{bump})
		h.Write(programID)
		h.Write([]byte("ProgramDerivedAddress"))
		sum := h.Sum(nil)

		if !isOnCurve(sum) {
			return base58.Encode(sum)
		}
	}
	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// parseMetaplexData reads name and symbol from a MetadataV1 account:
// key u8 | update_authority [32] | mint [32] | name borsh-string | symbol borsh-string | ...
func parseMetaplexData(data string) (name, symbol string, err error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", "", fmt.Errorf("decode metadata: %w", err)
	}
	if len(raw) < 69 || raw[0] != 4 {
		return "", "", fmt.Errorf("not a metadata v1 account")
	}

	offset := 65
	name, offset, err = readBorshString(raw, offset, 64)
	if err != nil {
		return "", "", fmt.Errorf("name: %w", err)
	}
	symbol, _, err = readBorshString(raw, offset, 32)
	if err != nil {
		return "", "", fmt.Errorf("symbol: %w", err)
	}
	return name, symbol, nil
}

func readBorshString(raw []byte, offset, maxLen int) (string, int, error) {
	if offset+4 > len(raw) {
		return "", offset, fmt.Errorf("truncated length")
	}
	n := int(binary.LittleEndian.Uint32(raw[offset:]))
	offset += 4
	if n > maxLen || offset+n > len(raw) {
		return "", offset, fmt.Errorf("bad length %d", n)
	}
	s := strings.TrimSpace(strings.TrimRight(string(raw[offset:offset+n]), "\x00"))
	return s, offset + n, nil
}
