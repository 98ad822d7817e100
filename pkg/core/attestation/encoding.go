// SPDX-License-Identifier: LGPL-3.0-or-later

package attestation

import "encoding/base64"

func decodeB64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }
