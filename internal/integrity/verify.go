package integrity

import (
	"crypto/sha1" //nolint:gosec // SHA-1 is mandated by the manifest format, paired with SHA-512.
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
)

// Algorithm names understood by the verifier.
const (
	SHA1   = "sha1"
	SHA256 = "sha256"
	SHA512 = "sha512"
	BLAKE3 = "blake3"
)

var (
	// ErrVerificationFailed wraps every reason a file does not verify.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrNoDigests is returned when no expected digest is supplied.
	ErrNoDigests = errors.New("no expected digests")
	// ErrUnsupportedAlgorithm is returned for unknown digest names.
	ErrUnsupportedAlgorithm = errors.New("unsupported digest algorithm")
	// ErrDigestMismatch is returned when a computed digest differs from the expected one.
	ErrDigestMismatch = errors.New("digest mismatch")
)

//nolint:gochecknoglobals // Read-only registry of digest constructors.
var constructors = map[string]func() hash.Hash{
	SHA1:   sha1.New,
	SHA256: sha256.New,
	SHA512: sha512.New,
	BLAKE3: func() hash.Hash { return blake3.New() },
}

// Supported reports whether the algorithm name is known.
func Supported(algorithm string) bool {
	_, ok := constructors[normalize(algorithm)]

	return ok
}

// Verify checks the file at name in fsys against every expected digest.
// The file is streamed once. Any failure is wrapped in ErrVerificationFailed.
func Verify(fsys afero.Fs, name string, expected map[string]string) error {
	if len(expected) == 0 {
		return fmt.Errorf("%s: %w: %w", name, ErrVerificationFailed, ErrNoDigests)
	}

	algorithms := make([]string, 0, len(expected))
	for algorithm := range expected {
		algorithms = append(algorithms, algorithm)
	}

	sort.Strings(algorithms)

	hashers := make([]hash.Hash, len(algorithms))
	writers := make([]io.Writer, len(algorithms))

	for i, algorithm := range algorithms {
		newHash, ok := constructors[normalize(algorithm)]
		if !ok {
			return fmt.Errorf("%s: %w: %w: %s", name, ErrVerificationFailed, ErrUnsupportedAlgorithm, algorithm)
		}

		hashers[i] = newHash()
		writers[i] = hashers[i]
	}

	if err := stream(fsys, name, io.MultiWriter(writers...)); err != nil {
		return fmt.Errorf("%s: %w: %w", name, ErrVerificationFailed, err)
	}

	for i, algorithm := range algorithms {
		computed := hex.EncodeToString(hashers[i].Sum(nil))
		want := strings.TrimSpace(expected[algorithm])

		if !strings.EqualFold(computed, want) {
			return fmt.Errorf("%s: %w: %w: %s", name, ErrVerificationFailed, ErrDigestMismatch, algorithm)
		}
	}

	return nil
}

func stream(fsys afero.Fs, name string, w io.Writer) error {
	file, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	if _, err = io.Copy(w, file); err != nil {
		return fmt.Errorf("read: %w", err)
	}

	return nil
}

func normalize(algorithm string) string {
	return strings.ToLower(strings.TrimSpace(algorithm))
}
