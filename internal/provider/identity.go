package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// NVIIdentityVerifier checks national identity numbers against the civil
// registry's SOAP endpoint.
type NVIIdentityVerifier struct {
	client *http.Client
	url    string
}

// NewNVIIdentityVerifier creates an identity verifier client.
func NewNVIIdentityVerifier(url string, timeout time.Duration) *NVIIdentityVerifier {
	return &NVIIdentityVerifier{client: newHTTPClient(timeout), url: url}
}

const nviEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <TCKimlikNoDogrula xmlns="http://tckimlik.nvi.gov.tr/WS">
      <TCKimlikNo>%s</TCKimlikNo>
      <Ad>%s</Ad>
      <Soyad>%s</Soyad>
      <DogumYili>%d</DogumYili>
    </TCKimlikNoDogrula>
  </soap:Body>
</soap:Envelope>`

// Verify returns whether the identity fields match the registry record.
func (v *NVIIdentityVerifier) Verify(ctx context.Context, nationalID, firstName, lastName string, birthYear int) (bool, error) {
	// The registry matches names uppercased in Turkish locale; callers pass
	// them through as entered and we uppercase here.
	envelope := fmt.Sprintf(nviEnvelope,
		nationalID,
		strings.ToUpperSpecial(unicode.TurkishCase, firstName),
		strings.ToUpperSpecial(unicode.TurkishCase, lastName),
		birthYear,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader([]byte(envelope)))
	if err != nil {
		return false, fmt.Errorf("failed to build identity request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://tckimlik.nvi.gov.tr/WS/TCKimlikNoDogrula")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("%w: reading response: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	return strings.Contains(string(raw), "<TCKimlikNoDogrulaResult>true</TCKimlikNoDogrulaResult>"), nil
}

// HTTPStudentVerifier checks student document barcodes against the issuing
// authority's lookup endpoint.
type HTTPStudentVerifier struct {
	client *http.Client
	url    string
}

// NewHTTPStudentVerifier creates a student document verifier client.
func NewHTTPStudentVerifier(url string, timeout time.Duration) *HTTPStudentVerifier {
	return &HTTPStudentVerifier{client: newHTTPClient(timeout), url: url}
}

// Verify returns whether the barcode resolves to a valid student document.
func (v *HTTPStudentVerifier) Verify(ctx context.Context, barcode string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url+"?barkod="+barcode, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build student document request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("%w: reading response: %v", ErrProviderUnavailable, err)
	}

	// The document page mentions the barcode when the lookup succeeds.
	return strings.Contains(string(raw), barcode), nil
}
