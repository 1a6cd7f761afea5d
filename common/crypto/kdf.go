package crypto

import (
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"

	"golang.org/x/crypto/pbkdf2"
	"crypto/sha256"
)

// KDFIterations is the minimum iteration count for the machine-identity key
// derivation. Rotating it changes every derived key, so treat it as a
// one-way door.
const KDFIterations = 480_000

// SaltSize is the length of the random salt stored alongside system_config.
const SaltSize = 32

var ErrNoMachineIdentity = errors.New("crypto: could not determine a stable machine identity")

// MachineIdentity resolves a stable per-host identifier: first the contents
// of /etc/machine-id, then a platform equivalent, then hostname plus the
// first non-loopback interface's hardware address.
func MachineIdentity() (string, error) {
	if id, err := readMachineIDFile("/etc/machine-id"); err == nil {
		return id, nil
	}
	if runtime.GOOS == "darwin" {
		if id, err := readMachineIDFile("/var/db/SystemIdentification"); err == nil {
			return id, nil
		}
	}

	host, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoMachineIdentity, err)
	}
	mac, err := firstHardwareAddr()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoMachineIdentity, err)
	}
	return host + "/" + mac, nil
}

func readMachineIDFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	id := string(data)
	if len(id) == 0 {
		return "", errors.New("empty machine-id file")
	}
	return id, nil
}

func firstHardwareAddr() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String(), nil
	}
	return "", errors.New("no non-loopback interface with a hardware address")
}

// DeriveKey runs PBKDF2-HMAC-SHA256 over identity+salt to produce a
// 32-byte AES-256-GCM key. Rotating salt invalidates every secret
// previously encrypted under the old key — there is no migration path,
// by design: the caller must re-encrypt or discard.
func DeriveKey(identity string, salt []byte) []byte {
	return pbkdf2.Key([]byte(identity), salt, KDFIterations, KeySize, sha256.New)
}
