// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"math"
	"math/rand"

	"github.com/ava-labs/avalanchego/utils/hashing"
	"golang.org/x/crypto/sha3"

	"github.com/convm/contractingvm/types"
)

// callModule dispatches a member call on one of the ambient standard
// modules. Every member is deterministic: hashing and signature checks
// are pure, randomness derives from block entropy, and time comes from
// block facts, never the host clock.
func (in *Interpreter) callModule(act *activation, module, member string, args []types.Value) (types.Value, error) {
	switch module {
	case "hashlib":
		return callHashlib(member, args)
	case "crypto":
		return callCrypto(member, args)
	case "random":
		return in.callRandom(act, member, args)
	case "datetime":
		return callDatetime(member, args)
	default: // importlib, by validation
		return in.callImportlib(act, member, args)
	}
}

func moduleString(module, member string, v types.Value) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", Abortf(AbortType, "%s.%s takes string arguments, got %s", module, member, types.KindOf(v))
	}
	return s, nil
}

func moduleInt(module, member string, v types.Value) (int64, error) {
	n, ok := v.(int64)
	if !ok {
		return 0, Abortf(AbortType, "%s.%s takes int arguments, got %s", module, member, types.KindOf(v))
	}
	return n, nil
}

func callHashlib(member string, args []types.Value) (types.Value, error) {
	s, err := moduleString("hashlib", member, args[0])
	if err != nil {
		return nil, err
	}
	switch member {
	case "Sha256":
		return hex.EncodeToString(hashing.ComputeHash256([]byte(s))), nil
	case "Sha3":
		sum := sha3.Sum256([]byte(s))
		return hex.EncodeToString(sum[:]), nil
	default:
		return nil, Abortf(AbortName, "unknown hashlib member %q", member)
	}
}

func callCrypto(member string, args []types.Value) (types.Value, error) {
	switch member {
	case "KeyIsValid":
		s, err := moduleString("crypto", member, args[0])
		if err != nil {
			return nil, err
		}
		key, err := hex.DecodeString(s)
		return err == nil && len(key) == ed25519.PublicKeySize, nil
	case "Verify":
		vkHex, err := moduleString("crypto", member, args[0])
		if err != nil {
			return nil, err
		}
		msg, err := moduleString("crypto", member, args[1])
		if err != nil {
			return nil, err
		}
		sigHex, err := moduleString("crypto", member, args[2])
		if err != nil {
			return nil, err
		}
		vk, err := hex.DecodeString(vkHex)
		if err != nil || len(vk) != ed25519.PublicKeySize {
			return false, nil
		}
		sig, err := hex.DecodeString(sigHex)
		if err != nil || len(sig) != ed25519.SignatureSize {
			return false, nil
		}
		return ed25519.Verify(ed25519.PublicKey(vk), []byte(msg), sig), nil
	default:
		return nil, Abortf(AbortName, "unknown crypto member %q", member)
	}
}

// seedRNG derives the contract's random stream from block entropy, the
// contract name and an optional salt, so every node draws the same
// sequence for the same transaction.
func (e *Env) seedRNG(contract string, salt []byte) *rand.Rand {
	material := make([]byte, 0, len(e.Block.Entropy)+len(contract)+len(salt))
	material = append(material, e.Block.Entropy...)
	material = append(material, contract...)
	material = append(material, salt...)
	sum := hashing.ComputeHash256(material)
	r := rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(sum[:8]))))
	e.rngs[contract] = r
	return r
}

func (e *Env) rngFor(contract string) *rand.Rand {
	if r, ok := e.rngs[contract]; ok {
		return r
	}
	return e.seedRNG(contract, nil)
}

func (in *Interpreter) callRandom(act *activation, member string, args []types.Value) (types.Value, error) {
	contract := act.mod.Name
	switch member {
	case "Seed":
		var salt []byte
		if len(args) == 1 {
			enc, err := types.Encode(args[0])
			if err != nil {
				return nil, Abortf(AbortType, "random.Seed takes an encodable value: %s", err)
			}
			salt = enc
		}
		in.env.seedRNG(contract, salt)
		return nil, nil

	case "Randint":
		lo, err := moduleInt("random", member, args[0])
		if err != nil {
			return nil, err
		}
		hi, err := moduleInt("random", member, args[1])
		if err != nil {
			return nil, err
		}
		if lo > hi {
			return nil, Abortf(AbortType, "random.Randint bounds are inverted: %d > %d", lo, hi)
		}
		r := in.env.rngFor(contract)
		span := uint64(hi) - uint64(lo)
		if span == math.MaxUint64 {
			return int64(r.Uint64()), nil
		}
		return lo + int64(r.Uint64()%(span+1)), nil

	case "Getrandbits":
		k, err := moduleInt("random", member, args[0])
		if err != nil {
			return nil, err
		}
		if k < 0 || k > 63 {
			return nil, Abortf(AbortType, "random.Getrandbits takes 0 to 63 bits, got %d", k)
		}
		if k == 0 {
			return int64(0), nil
		}
		mask := uint64(1)<<uint(k) - 1
		return int64(in.env.rngFor(contract).Uint64() & mask), nil

	case "Choice":
		list, ok := args[0].(types.List)
		if !ok {
			return nil, Abortf(AbortType, "random.Choice takes a list, got %s", types.KindOf(args[0]))
		}
		if len(list) == 0 {
			return nil, Abortf(AbortType, "random.Choice on an empty list")
		}
		return list[in.env.rngFor(contract).Intn(len(list))], nil

	default:
		return nil, Abortf(AbortName, "unknown random member %q", member)
	}
}

func callDatetime(member string, args []types.Value) (types.Value, error) {
	switch member {
	case "Datetime":
		parts := make([]int64, 6)
		for i, a := range args {
			n, err := moduleInt("datetime", member, a)
			if err != nil {
				return nil, err
			}
			parts[i] = n
		}
		return types.NewDatetime(
			int(parts[0]), int(parts[1]), int(parts[2]),
			int(parts[3]), int(parts[4]), int(parts[5]),
		), nil

	case "Timedelta":
		days, err := moduleInt("datetime", member, args[0])
		if err != nil {
			return nil, err
		}
		var seconds int64
		if len(args) == 2 {
			if seconds, err = moduleInt("datetime", member, args[1]); err != nil {
				return nil, err
			}
		}
		return types.NewTimedelta(days, seconds), nil

	case "Weeks", "Days", "Hours", "Minutes", "Seconds":
		n, err := moduleInt("datetime", member, args[0])
		if err != nil {
			return nil, err
		}
		switch member {
		case "Weeks":
			days, err := mulInt(n, 7)
			if err != nil {
				return nil, err
			}
			return types.NewTimedelta(days, 0), nil
		case "Days":
			return types.NewTimedelta(n, 0), nil
		case "Hours":
			secs, err := mulInt(n, 3600)
			if err != nil {
				return nil, err
			}
			return types.NewTimedelta(0, secs), nil
		case "Minutes":
			secs, err := mulInt(n, 60)
			if err != nil {
				return nil, err
			}
			return types.NewTimedelta(0, secs), nil
		default:
			return types.NewTimedelta(0, n), nil
		}

	default:
		return nil, Abortf(AbortName, "unknown datetime member %q", member)
	}
}
