package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"leadflow/models"
	"leadflow/monitoring"
	"leadflow/query"
	"leadflow/store"
	"leadflow/utils"
)

// consultationIndex is the ES index the consumer maintains for search.
const consultationIndex = "consultations"

type LeadHandler struct {
	store *store.Store
	kafka utils.KafkaProducer
	es    utils.ElasticsearchClient
	cache utils.RedisClient
}

// NewLeadHandler wires the HTTP surface. kafka, es and cache may be nil;
// leads are then stored without outbound fan-out or cached lookups.
func NewLeadHandler(st *store.Store, kafka utils.KafkaProducer, es utils.ElasticsearchClient, cache utils.RedisClient) *LeadHandler {
	return &LeadHandler{
		store: st,
		kafka: kafka,
		es:    es,
		cache: cache,
	}
}

func (h *LeadHandler) SubmitConsultation(c *gin.Context) {
	var sub models.ConsultationSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		monitoring.SubmissionsTotal.WithLabelValues("consultation", "invalid").Inc()
		c.JSON(http.StatusBadRequest, rejection("InvalidInput", "malformed request body"))
		return
	}

	rec, err := models.NormalizeConsultation(sub)
	if err != nil {
		monitoring.SubmissionsTotal.WithLabelValues("consultation", "invalid").Inc()
		c.JSON(http.StatusBadRequest, rejection("InvalidInput", err.Error()))
		return
	}

	stored, err := h.store.AppendConsultation(c.Request.Context(), *rec)
	if err != nil {
		h.rejectAppend(c, "consultation", err)
		return
	}

	monitoring.SubmissionsTotal.WithLabelValues("consultation", "accepted").Inc()
	monitoring.StoreRecords.WithLabelValues("consultation").
		Set(float64(len(h.store.CurrentSnapshot().Consultations)))

	go h.publishLeadEvent("consultation", stored.ID, stored)

	c.JSON(http.StatusCreated, stored)
}

func (h *LeadHandler) SubmitPhoneLead(c *gin.Context) {
	var sub models.PhoneLeadSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		monitoring.SubmissionsTotal.WithLabelValues("phone_lead", "invalid").Inc()
		c.JSON(http.StatusBadRequest, rejection("InvalidInput", "malformed request body"))
		return
	}

	rec, err := models.NormalizePhoneLead(sub)
	if err != nil {
		monitoring.SubmissionsTotal.WithLabelValues("phone_lead", "invalid").Inc()
		c.JSON(http.StatusBadRequest, rejection("InvalidInput", err.Error()))
		return
	}

	stored, err := h.store.AppendPhoneLead(c.Request.Context(), *rec)
	if err != nil {
		h.rejectAppend(c, "phone_lead", err)
		return
	}

	monitoring.SubmissionsTotal.WithLabelValues("phone_lead", "accepted").Inc()
	monitoring.StoreRecords.WithLabelValues("phone_lead").
		Set(float64(len(h.store.CurrentSnapshot().PhoneLeads)))

	go h.publishLeadEvent("phone_lead", stored.ID, stored)

	c.JSON(http.StatusCreated, stored)
}

func (h *LeadHandler) ListConsultations(c *gin.Context) {
	filters := query.Filters{
		Name:       c.Query("name"),
		Phone:      c.Query("phone"),
		SourcePage: c.Query("source_page"),
		Product:    c.Query("product"),
		StartAt:    c.Query("start_at"),
		EndAt:      c.Query("end_at"),
	}

	matched, err := query.FilterConsultations(h.store.CurrentSnapshot(), filters)
	if err != nil {
		c.JSON(http.StatusBadRequest, rejection("InvalidInput", err.Error()))
		return
	}

	page, pageSize, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, rejection("InvalidInput", err.Error()))
		return
	}

	start, end, meta, err := query.PageBounds(len(matched), page, pageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, rejection("InvalidInput", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": matched[start:end],
		"meta":  meta,
	})
}

func (h *LeadHandler) ListPhoneLeads(c *gin.Context) {
	filters := query.Filters{
		Phone:   c.Query("phone"),
		Source:  c.Query("source"),
		StartAt: c.Query("start_at"),
		EndAt:   c.Query("end_at"),
	}

	matched, err := query.FilterPhoneLeads(h.store.CurrentSnapshot(), filters)
	if err != nil {
		c.JSON(http.StatusBadRequest, rejection("InvalidInput", err.Error()))
		return
	}

	page, pageSize, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, rejection("InvalidInput", err.Error()))
		return
	}

	start, end, meta, err := query.PageBounds(len(matched), page, pageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, rejection("InvalidInput", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": matched[start:end],
		"meta":  meta,
	})
}

// GetLead serves a single record by id, cache first: the consumer warms
// "lead:<id>" entries from accepted-lead events, and a miss falls back
// to the snapshot and re-warms the entry.
func (h *LeadHandler) GetLead(c *gin.Context) {
	id := c.Param("id")

	if h.cache != nil {
		if val, err := h.cache.GetFromCache(c.Request.Context(), "lead:"+id); err == nil && val != "" {
			c.Data(http.StatusOK, "application/json", []byte(val))
			return
		}
	}

	snap := h.store.CurrentSnapshot()
	for i := range snap.Consultations {
		if snap.Consultations[i].ID == id {
			h.respondWithLead(c, id, snap.Consultations[i])
			return
		}
	}
	for i := range snap.PhoneLeads {
		if snap.PhoneLeads[i].ID == id {
			h.respondWithLead(c, id, snap.PhoneLeads[i])
			return
		}
	}

	c.JSON(http.StatusNotFound, rejection("NotFound", "lead not found"))
}

func (h *LeadHandler) respondWithLead(c *gin.Context, id string, record interface{}) {
	if h.cache != nil {
		if data, err := json.Marshal(record); err == nil {
			if err := h.cache.SetToCache(c.Request.Context(), "lead:"+id, string(data), 24*time.Hour); err != nil {
				log.Printf("Failed to cache lead %s: %v", id, err)
			}
		}
	}
	c.JSON(http.StatusOK, record)
}

func (h *LeadHandler) Summary(c *gin.Context) {
	s := query.Summarize(h.store.CurrentSnapshot(), time.Now())
	c.JSON(http.StatusOK, s)
}

// SearchConsultations serves full-text search from the Elasticsearch
// index built by the consumer. Unavailable when ES is not wired.
func (h *LeadHandler) SearchConsultations(c *gin.Context) {
	if h.es == nil {
		c.JSON(http.StatusServiceUnavailable, rejection("StoreUnavailable", "search is not available"))
		return
	}

	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, rejection("InvalidInput", "query parameter q is required"))
		return
	}

	esQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"fields": []string{"name", "phone", "sourcePage", "intentionProducts"},
			},
		},
	}

	results, err := h.es.SearchLeads(c.Request.Context(), consultationIndex, esQuery)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusServiceUnavailable, rejection("StoreUnavailable", "search failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": results})
}

// rejectAppend maps store errors to responses. Duplicates are expected
// traffic and not logged as errors; storage faults are.
func (h *LeadHandler) rejectAppend(c *gin.Context, kind string, err error) {
	switch {
	case errors.Is(err, store.ErrDuplicate):
		monitoring.SubmissionsTotal.WithLabelValues(kind, "duplicate").Inc()
		c.JSON(http.StatusConflict, rejection("DuplicateSubmission", "an equivalent submission was accepted recently"))
	case errors.Is(err, store.ErrStoreUnavailable):
		monitoring.SubmissionsTotal.WithLabelValues(kind, "store_error").Inc()
		c.Error(err)
		c.JSON(http.StatusServiceUnavailable, rejection("StoreUnavailable", "submission could not be persisted, please retry"))
	default:
		monitoring.SubmissionsTotal.WithLabelValues(kind, "store_error").Inc()
		c.Error(err)
		c.JSON(http.StatusInternalServerError, rejection("StoreUnavailable", err.Error()))
	}
}

// publishLeadEvent fans an accepted lead out to Kafka; the consumer picks
// it up and maintains the search index. Fire-and-forget: fan-out failures
// never fail the submission.
func (h *LeadHandler) publishLeadEvent(kind, id string, record interface{}) {
	if h.kafka == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := map[string]interface{}{
		"event":  "lead_accepted",
		"kind":   kind,
		"id":     id,
		"record": record,
	}
	jsonData, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal lead event: %v", err)
		return
	}
	if err := h.kafka.SendMessage(ctx, utils.LeadEventsTopic, []byte(id), jsonData); err != nil {
		log.Printf("Failed to send lead event: %v", err)
	}
}

func rejection(reason, message string) gin.H {
	return gin.H{"reason": reason, "error": message}
}

func pagination(c *gin.Context) (page, pageSize int, err error) {
	page = 1
	pageSize = 10

	if raw := c.Query("page"); raw != "" {
		if page, err = strconv.Atoi(raw); err != nil {
			return 0, 0, query.ErrInvalidPage
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		if pageSize, err = strconv.Atoi(raw); err != nil {
			return 0, 0, query.ErrInvalidPage
		}
	}
	return page, pageSize, nil
}
