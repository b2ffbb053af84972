// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"errors"

	"go.mozilla.org/pkcs7"
)

// Cryptographic authentication of a buffer's *wire content* is explicitly
// out of core scope (spec.md section 1, Non-goals): the builder and
// verifier never look inside a PKCS#7 envelope. SignBuffer/OpenSigned
// instead treat a finished buffer as an opaque blob and wrap/unwrap it in
// an attached PKCS#7 SignedData envelope, the same Authenticode
// primitive the teacher codebase's certificate directory parser consumes
// on the read side.

// ErrSignatureInvalid is returned by OpenSigned when the envelope's
// signature does not verify against its embedded certificate chain.
var ErrSignatureInvalid = errors.New("flatforge: buffer signature invalid")

// SignBuffer wraps buf in a PKCS#7 SignedData envelope signed by key
// under cert, returning the DER-encoded envelope. The caller is
// responsible for verifying buf with Verify before signing it and for
// verifying the returned envelope's certificate chain through whatever
// trust store is appropriate for its use case.
func SignBuffer(buf []byte, cert *x509.Certificate, key crypto.Signer) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(buf)
	if err != nil {
		return nil, err
	}
	signer, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("flatforge: only RSA signers are supported")
	}
	if err := sd.AddSigner(cert, signer, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, err
	}
	return sd.Finish()
}

// OpenSigned unwraps a PKCS#7 envelope produced by SignBuffer, verifies
// its signature, and returns the enclosed buffer. Callers must still run
// Verify on the result before treating it as a well-formed table.
func OpenSigned(envelope []byte) ([]byte, error) {
	p7, err := pkcs7.Parse(envelope)
	if err != nil {
		return nil, err
	}
	if err := p7.Verify(); err != nil {
		return nil, ErrSignatureInvalid
	}
	return p7.Content, nil
}
