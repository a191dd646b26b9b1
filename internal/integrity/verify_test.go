package integrity

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// Digests of the ASCII bytes "hello world".
const (
	helloSHA1   = "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"
	helloSHA256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	helloSHA512 = "309ecc489c12d6eb4cc40f50c902f2b4d0ed77ee511a7c7a9bcd3ca86d4cd86f" +
		"989dd35bc5ff499670da34255b45b0cfd830e81f605dcf7dc5542e93ae9cd76f"
)

func helloFs(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "mods/hello.jar", []byte("hello world"), 0o644))

	return fs
}

// TestVerify_CorrectDigests accepts matching sha1 and sha512, in any case.
func TestVerify_CorrectDigests(t *testing.T) {
	t.Parallel()

	fs := helloFs(t)

	require.NoError(t, Verify(fs, "mods/hello.jar", map[string]string{
		SHA1:   helloSHA1,
		SHA512: strings.ToUpper(helloSHA512),
	}))

	require.NoError(t, Verify(fs, "mods/hello.jar", map[string]string{SHA256: helloSHA256}))
}

// TestVerify_CorruptedDigest fails when any one digest is wrong.
func TestVerify_CorruptedDigest(t *testing.T) {
	t.Parallel()

	fs := helloFs(t)

	corrupted := "0" + helloSHA512[1:]
	if helloSHA512[0] == '0' {
		corrupted = "1" + helloSHA512[1:]
	}

	err := Verify(fs, "mods/hello.jar", map[string]string{
		SHA1:   helloSHA1,
		SHA512: corrupted,
	})
	require.ErrorIs(t, err, ErrVerificationFailed)
	require.ErrorIs(t, err, ErrDigestMismatch)
}

// TestVerify_Failures covers the non-mismatch failure paths.
func TestVerify_Failures(t *testing.T) {
	t.Parallel()

	fs := helloFs(t)

	err := Verify(fs, "mods/hello.jar", nil)
	require.ErrorIs(t, err, ErrVerificationFailed)
	require.ErrorIs(t, err, ErrNoDigests)

	err = Verify(fs, "mods/hello.jar", map[string]string{"md4": "00"})
	require.ErrorIs(t, err, ErrVerificationFailed)
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	err = Verify(fs, "mods/missing.jar", map[string]string{SHA1: helloSHA1})
	require.ErrorIs(t, err, ErrVerificationFailed)
}

// TestVerify_Blake3 checks the blake3 digest of a known input.
func TestVerify_Blake3(t *testing.T) {
	t.Parallel()

	fs := helloFs(t)

	require.NoError(t, Verify(fs, "mods/hello.jar", map[string]string{
		BLAKE3: "d74981efa70a0c880b8d8c1985d075dbcbf679b99a5f9914e5aaf96b831a9e24",
	}))
	require.True(t, Supported("BLAKE3"))
	require.False(t, Supported("crc32"))
}
