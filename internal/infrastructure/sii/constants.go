// Package sii implementa el timbre electrónico (TED), el XML del DTE y su
// firma XMLDSig según el formato del Servicio de Impuestos Internos.
package sii

// Algoritmos y namespaces XMLDSig usados por el SII (SHA-1).
const (
	NamespaceDS     = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceSIIDTE = "http://www.sii.cl/SiiDte"

	AlgC14N      = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA1   = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgSHA1      = "http://www.w3.org/2000/09/xmldsig#sha1"
	AlgTEDFirma  = "SHA1withRSA"
	TEDVersion   = "1.0"
	DTEVersion   = "1.0"
	timestampFmt = "2006-01-02T15:04:05"
	dateFmt      = "2006-01-02"

	// Largos máximos de campos del TED.
	maxRSRLen = 40
	maxIT1Len = 40
)
