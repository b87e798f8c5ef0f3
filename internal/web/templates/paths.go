package templates

import (
	"fmt"
	"net/url"
)

// Paths shared by pages and API responses.

func SessionPath(sessionID string) string {
	return "/session/" + url.PathEscape(sessionID)
}

func APISessionPath(sessionID string) string {
	return "/api/sessions/" + url.PathEscape(sessionID)
}

func EventsPath(sessionID string) string {
	return APISessionPath(sessionID) + "/events"
}

func ExportArchivePath(sessionID string) string {
	return APISessionPath(sessionID) + "/export.zip"
}

func DownloadPath(sessionID string, itemID int) string {
	return fmt.Sprintf("%s/items/%d/download", APISessionPath(sessionID), itemID)
}

func ThumbnailPath(sessionID string, itemID int, imageID string) string {
	return fmt.Sprintf("%s/items/%d/images/%s/thumb", APISessionPath(sessionID), itemID, url.PathEscape(imageID))
}

func SelectPath(sessionID string, itemID int) string {
	return fmt.Sprintf("%s/items/%d/select", SessionPath(sessionID), itemID)
}
