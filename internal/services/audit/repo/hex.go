package repo

import "encoding/hex"

func hexEncode(b []byte) string { return hex.EncodeToString(b) }

func hexDecode(s string, dst []byte) (int, error) { return hex.Decode(dst, []byte(s)) }
