package hashing

import (
	"testing"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHex_KnownDigests(t *testing.T) {
	tests := []struct {
		algorithm string
		input     string
		want      string
	}{
		{algorithm: "md4", input: "", want: "31d6cfe0d16ae931b73c59d7e0c089c0"},
		{algorithm: "md4", input: "abc", want: "a448017aaf21d8525fc10ae87aa6729d"},
		{algorithm: "md5", input: "abc", want: "900150983cd24fb0d6963f7d28e17f72"},
		{algorithm: "sha1", input: "abc", want: "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{algorithm: "sha256", input: "abc", want: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{algorithm: "blake3", input: "", want: "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
	}

	for _, tt := range tests {
		t.Run(tt.algorithm+"/"+tt.input, func(t *testing.T) {
			fn, err := Hex(tt.algorithm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fn(tt.input))
		})
	}
}

func TestHex_Stable(t *testing.T) {
	for _, name := range Algorithms() {
		fn, err := Hex(name)
		require.NoError(t, err)
		assert.Equal(t, fn("/app/src/index.js"), fn("/app/src/index.js"), name)
		assert.NotEqual(t, fn("/app/src/a.js"), fn("/app/src/b.js"), name)
	}
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New("crc32")
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeInvalidConfig, platformerrors.GetCode(err))
	assert.False(t, Supported("crc32"))

	_, err = Hex("")
	assert.Error(t, err)
}

func TestAlgorithms(t *testing.T) {
	assert.Equal(t, []string{"blake3", "md4", "md5", "sha1", "sha256", "sha512"}, Algorithms())
	assert.True(t, Supported(Default))
}
