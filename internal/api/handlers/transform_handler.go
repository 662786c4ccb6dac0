package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gmarches/s3catalog/internal/transform"
)

type TransformHandler struct {
	converter *transform.ExcelConverter
	extractor *transform.ZipExtractor
	loader    *transform.CSVLoader
	sender    *transform.SFTPSender
}

func NewTransformHandler(converter *transform.ExcelConverter, extractor *transform.ZipExtractor, loader *transform.CSVLoader, sender *transform.SFTPSender) *TransformHandler {
	return &TransformHandler{
		converter: converter,
		extractor: extractor,
		loader:    loader,
		sender:    sender,
	}
}

type convertRequest struct {
	ExcelKey  string `json:"excel_key"`
	SheetName string `json:"sheet_name"`
}

// ConvertExcel converts a stored workbook sheet to CSV.
func (h *TransformHandler) ConvertExcel(c *gin.Context) {
	var req convertRequest
	_ = c.ShouldBindJSON(&req)

	csvKey, rows, err := h.converter.ConvertToCSV(c.Request.Context(), req.ExcelKey, req.SheetName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"csv_key": csvKey, "rows": rows})
}

type extractRequest struct {
	ZipKey string `json:"zip_key"`
}

// ExtractZip unpacks a stored archive into individual objects.
func (h *TransformHandler) ExtractZip(c *gin.Context) {
	var req extractRequest
	_ = c.ShouldBindJSON(&req)

	files, err := h.extractor.Extract(c.Request.Context(), req.ZipKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"extracted_files": files, "count": len(files)})
}

type loadRequest struct {
	CSVKey    string `json:"csv_key"`
	TableName string `json:"table_name"`
}

// LoadCSV streams a stored CSV into the relational store.
func (h *TransformHandler) LoadCSV(c *gin.Context) {
	var req loadRequest
	_ = c.ShouldBindJSON(&req)
	if req.TableName == "" {
		req.TableName = transform.DefaultLoadTable
	}

	rows, err := h.loader.Load(c.Request.Context(), req.CSVKey, req.TableName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"table_name": req.TableName, "rows_loaded": rows})
}

// Transfer copies a stored object to a remote host over SFTP.
func (h *TransformHandler) Transfer(c *gin.Context) {
	var req transform.TransferRequest
	_ = c.ShouldBindJSON(&req)

	remotePath, err := h.sender.Send(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"remote_path": remotePath})
}
