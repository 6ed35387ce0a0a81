package server

import (
	"net/http"

	"github.com/skip2/go-qrcode"
)

const qrSize = 320 // mobile-friendly size

// handleQR serves a PNG QR code pointing players at the public join URL, for
// the welcome screen on the shared display.
func handleQR(publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		png, err := qrcode.Encode(publicURL, qrcode.Medium, qrSize)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "qr generation failed")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}
