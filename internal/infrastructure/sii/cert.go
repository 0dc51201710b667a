// Carga del certificado digital del emisor desde .p12 (PKCS#12) o par PEM.

package sii

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// LoadFromPEM carga certificado y llave desde archivos PEM (separados o combinados).
func LoadFromPEM(certPath, keyPath string) (tls.Certificate, error) {
	if keyPath == "" {
		keyPath = certPath
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar PEM: %w", err)
	}
	return cert, nil
}

// LoadCertificate elige el formato según la extensión. Ruta vacía = sin certificado.
func LoadCertificate(certPath, keyPath, password string) (*tls.Certificate, error) {
	if certPath == "" {
		return nil, nil
	}
	lower := strings.ToLower(certPath)
	var (
		cert tls.Certificate
		err  error
	)
	if strings.HasSuffix(lower, ".p12") || strings.HasSuffix(lower, ".pfx") {
		cert, err = LoadFromP12(certPath, password)
	} else {
		cert, err = LoadFromPEM(certPath, keyPath)
	}
	if err != nil {
		return nil, err
	}
	if len(cert.Certificate) == 0 || cert.PrivateKey == nil {
		return nil, fmt.Errorf("certificado vacío: verifica SII_CERT_PATH y SII_CERT_PASSWORD")
	}
	return &cert, nil
}
