package frameio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const fallbackFiletype = "application/octet-stream"

// mediaTypes covers the delivery formats the export presets produce. The
// system mime table is consulted for anything else.
var mediaTypes = map[string]string{
	".mp4": "video/mp4",
	".mov": "video/quicktime",
	".mxf": "application/mxf",
	".wav": "audio/wav",
	".aif": "audio/aiff",
	".jpg": "image/jpeg",
	".png": "image/png",
	".exr": "image/x-exr",
	".dpx": "image/x-dpx",
}

func filetypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return fallbackFiletype
}

// UploadFile creates a file asset under parentID and streams the local
// file's content to the presigned upload URLs the service returns. The file
// is split into one chunk per URL; every chunk PUT is individually retried.
func (c *Client) UploadFile(ctx context.Context, parentID, path string) (AssetRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return AssetRef{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return AssetRef{}, fmt.Errorf("stat %s: %w", path, err)
	}

	name := filepath.Base(path)
	filetype := filetypeFor(path)

	payload := map[string]any{
		"name":     name,
		"type":     TypeFile,
		"filesize": info.Size(),
		"filetype": filetype,
	}
	var target uploadTarget
	if err := c.do(ctx, http.MethodPost, "/assets/"+parentID+"/children", nil, payload, &target); err != nil {
		return AssetRef{}, fmt.Errorf("create asset %q: %w", name, err)
	}
	if len(target.UploadURLs) == 0 {
		return AssetRef{}, fmt.Errorf("create asset %q: no upload urls returned", name)
	}

	// One chunk per presigned URL, sized so the last URL takes the
	// remainder.
	chunkSize := (info.Size() + int64(len(target.UploadURLs)) - 1) / int64(len(target.UploadURLs))
	c.log.Info().
		Str("file", name).
		Int64("size", info.Size()).
		Int("chunks", len(target.UploadURLs)).
		Msg("uploading")

	buf := make([]byte, chunkSize)
	for i, uploadURL := range target.UploadURLs {
		n, err := io.ReadFull(f, buf)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			// last chunk
		} else if err != nil {
			return AssetRef{}, fmt.Errorf("read chunk %d of %s: %w", i+1, name, err)
		}
		if n == 0 {
			break
		}
		if err := c.putChunk(ctx, uploadURL, buf[:n], filetype); err != nil {
			return AssetRef{}, fmt.Errorf("upload chunk %d/%d of %s: %w", i+1, len(target.UploadURLs), name, err)
		}
		c.log.Debug().Str("file", name).Int("chunk", i+1).Int("bytes", n).Msg("chunk uploaded")
	}

	c.log.Info().Str("file", name).Str("asset", target.ID).Msg("upload complete")
	return target.AssetRef, nil
}

// putChunk PUTs one chunk to a presigned storage URL. The headers must
// match what the signature covers.
func (c *Client) putChunk(ctx context.Context, uploadURL string, data []byte, filetype string) error {
	return c.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("build chunk request: %w", err)
		}
		req.Header.Set("Content-Type", filetype)
		req.Header.Set("x-amz-acl", "private")
		req.ContentLength = int64(len(data))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("put chunk: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(resp.Body)
			return &APIError{Status: resp.StatusCode, Message: remoteMessage(raw)}
		}
		io.Copy(io.Discard, resp.Body)
		return nil
	})
}
