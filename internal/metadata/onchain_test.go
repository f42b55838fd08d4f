package metadata

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-alerts/internal/solana"
	"whale-alerts/internal/solana/stub"
)

func metadataAccount(name, symbol string) string {
	raw := []byte{4}
	raw = append(raw, make([]byte, 64)...)
	for _, s := range []string{name, symbol} {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
		raw = append(raw, n[:]...)
		raw = append(raw, s...)
	}
	raw = append(raw, make([]byte, 16)...)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestMetadataPDA(t *testing.T) {
	pda, err := MetadataPDA(testMint)
	require.NoError(t, err)

	raw, err := base58.Decode(pda)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
	assert.False(t, isOnCurve(raw))

	again, err := MetadataPDA(testMint)
	require.NoError(t, err)
	assert.Equal(t, pda, again)

	_, err = MetadataPDA("not-base58-0OIl")
	assert.Error(t, err)
}

func TestOnChainSource_Fetch(t *testing.T) {
	pda, err := MetadataPDA(testMint)
	require.NoError(t, err)

	rpc := stub.NewRPCClient()
	rpc.Accounts[pda] = &solana.AccountInfo{Data: metadataAccount("Dog Wif Hat\x00\x00\x00", "WIF\x00\x00")}

	meta, err := NewOnChainSource(rpc).Fetch(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, "WIF", meta.Symbol)
	assert.Equal(t, "Dog Wif Hat", meta.Name)
	assert.Nil(t, meta.MarketCapUSD)
}

func TestOnChainSource_MissingAccount(t *testing.T) {
	_, err := NewOnChainSource(stub.NewRPCClient()).Fetch(context.Background(), testMint)
	assert.ErrorIs(t, err, errNoMetadataAccount)
}

func TestParseMetaplexData_Rejects(t *testing.T) {
	_, _, err := parseMetaplexData("!!!")
	assert.Error(t, err)

	wrongKey := make([]byte, 80)
	_, _, err = parseMetaplexData(base64.StdEncoding.EncodeToString(wrongKey))
	assert.Error(t, err)

	raw := []byte{4}
	raw = append(raw, make([]byte, 64)...)
	raw = append(raw, 0xff, 0xff, 0, 0)
	_, _, err = parseMetaplexData(base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)
}
