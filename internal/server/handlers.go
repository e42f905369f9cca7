package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// putRequest is the body of PUT /api/v1/entries/:key.
// A missing ttl_ms falls back to the configured default TTL.
type putRequest struct {
	Value     any      `json:"value"`
	TTLMillis *float64 `json:"ttl_ms"`
}

type entryResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type statsResponse struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	MemSize int    `json:"mem_size"`
	Live    int    `json:"live"`
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getEntry(c *gin.Context) {
	key := c.Param("key")
	value, ok := s.store.Get(key)
	if !ok {
		RespondWithNotFound(c, "entry", key)
		return
	}
	c.JSON(http.StatusOK, entryResponse{Key: key, Value: value})
}

func (s *Server) putEntry(c *gin.Context) {
	var req putRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	key := c.Param("key")
	if req.TTLMillis == nil {
		s.store.Put(key, req.Value, s.defaultTTL)
	} else {
		s.store.PutMillis(key, req.Value, *req.TTLMillis)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteEntry(c *gin.Context) {
	s.store.Delete(c.Param("key"))
	c.Status(http.StatusNoContent)
}

func (s *Server) clearEntries(c *gin.Context) {
	s.store.Clear()
	c.Status(http.StatusNoContent)
}

// stats never mutates the cache; live comes from Len, not Size.
func (s *Server) stats(c *gin.Context) {
	st := s.store.Stats()
	c.JSON(http.StatusOK, statsResponse{
		Hits:    st.Hits,
		Misses:  st.Misses,
		MemSize: st.Entries,
		Live:    s.store.Len(),
	})
}

// size reports the compatibility Size, which counts a hit per live key and
// collects expired ones.
func (s *Server) size(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"size": s.store.Size()})
}
