// Package middleware holds gin middleware that is not tied to one service
// concern.
package middleware

import (
	"compress/gzip"
	"io"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // Minimum first write to compress (bytes)
	CompressionLevel int      // Gzip compression level (1-9, 9 is best compression)
	ContentTypes     []string // Content types to compress
}

// DefaultCompressionConfig compresses JSON and text bodies of 1KB or more.
// Exports (CSV, XLSX) are served as-is.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"text/plain",
			"text/html",
		},
	}
}

// CompressionMiddleware gzips eligible responses for clients that accept it.
type CompressionMiddleware struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	level := config.CompressionLevel
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}

	return &CompressionMiddleware{
		config: config,
		stats:  NewCompressionStats(),
		pool: sync.Pool{
			New: func() interface{} {
				gz, _ := gzip.NewWriterLevel(io.Discard, level)
				return gz
			},
		},
	}
}

// Handler returns the gin middleware. The decision to compress is made on the
// first body write, once the handler has set Content-Type.
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cm.clientAcceptsGzip(c.GetHeader("Accept-Encoding")) {
			c.Next()
			return
		}

		gw := &gzipResponseWriter{ResponseWriter: c.Writer, cm: cm}
		c.Writer = gw
		defer func() {
			compressed := gw.finish()
			cm.stats.RecordRequest(gw.original, int64(gw.ResponseWriter.Size()), compressed)
			// Outer middleware writing after us must not reach a closed stream.
			c.Writer = gw.ResponseWriter
		}()

		c.Next()
	}
}

func (cm *CompressionMiddleware) clientAcceptsGzip(acceptEncoding string) bool {
	return strings.Contains(acceptEncoding, "gzip")
}

func (cm *CompressionMiddleware) shouldCompress(contentType string) bool {
	for _, ct := range cm.config.ContentTypes {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

func (cm *CompressionMiddleware) getGzipWriter(w io.Writer) *gzip.Writer {
	gz := cm.pool.Get().(*gzip.Writer)
	gz.Reset(w)
	return gz
}

func (cm *CompressionMiddleware) returnGzipWriter(gz *gzip.Writer) {
	gz.Close()
	cm.pool.Put(gz)
}

// gzipResponseWriter defers the compress decision to the first Write.
type gzipResponseWriter struct {
	gin.ResponseWriter
	cm       *CompressionMiddleware
	gz       *gzip.Writer
	decided  bool
	original int64
}

func (gzw *gzipResponseWriter) decide(firstWrite int) {
	gzw.decided = true
	h := gzw.Header()
	if h.Get("Content-Encoding") != "" || firstWrite < gzw.cm.config.MinSize ||
		!gzw.cm.shouldCompress(h.Get("Content-Type")) {
		return
	}

	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")
	gzw.gz = gzw.cm.getGzipWriter(gzw.ResponseWriter)
}

// Write writes data through the gzip writer
func (gzw *gzipResponseWriter) Write(data []byte) (int, error) {
	if !gzw.decided {
		gzw.decide(len(data))
	}
	gzw.original += int64(len(data))

	if gzw.gz == nil {
		return gzw.ResponseWriter.Write(data)
	}
	return gzw.gz.Write(data)
}

// WriteString writes s through the gzip writer
func (gzw *gzipResponseWriter) WriteString(s string) (int, error) {
	return gzw.Write([]byte(s))
}

// Flush flushes the gzip writer
func (gzw *gzipResponseWriter) Flush() {
	if gzw.gz != nil {
		gzw.gz.Flush()
	}
	gzw.ResponseWriter.Flush()
}

// finish closes the gzip stream and reports whether the body was compressed.
func (gzw *gzipResponseWriter) finish() bool {
	if gzw.gz == nil {
		return false
	}
	gzw.cm.returnGzipWriter(gzw.gz)
	gzw.gz = nil
	return true
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	TotalBytes         int64
	CompressedBytes    int64
	mutex              sync.RWMutex
}

// NewCompressionStats creates new compression statistics
func NewCompressionStats() *CompressionStats {
	return &CompressionStats{}
}

// RecordRequest records a request's compression stats
func (cs *CompressionStats) RecordRequest(originalSize, compressedSize int64, compressed bool) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.TotalRequests++
	if compressed {
		cs.CompressedRequests++
		cs.TotalBytes += originalSize
		cs.CompressedBytes += compressedSize
	}
}

// GetStats returns current compression statistics
func (cs *CompressionStats) GetStats() map[string]interface{} {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	compressionRatio := float64(0)
	if cs.TotalBytes > 0 {
		compressionRatio = float64(cs.CompressedBytes) / float64(cs.TotalBytes)
	}

	return map[string]interface{}{
		"total_requests":      cs.TotalRequests,
		"compressed_requests": cs.CompressedRequests,
		"total_bytes":         cs.TotalBytes,
		"compressed_bytes":    cs.CompressedBytes,
		"compression_ratio":   compressionRatio,
	}
}

// GetStats returns compression statistics
func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	return cm.stats.GetStats()
}
