package lib

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yeqown/go-qrcode"
)

func InviteURL(code string) string {
	host := strings.TrimRight(os.Getenv("APP_HOST"), "/")
	return fmt.Sprintf("%s/invites/%s", host, code)
}

// WriteInviteQRCode renders the redeem link of an invite as a JPEG.
func WriteInviteQRCode(w io.Writer, code string) error {
	qrc, err := qrcode.New(InviteURL(code))
	if err != nil {
		return err
	}
	return qrc.SaveTo(w)
}
