package server

import (
	"inkwell/internal/media"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /api/upload/image
// @Summary Upload one image to the media host
// @Tags upload
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param image formData file true "Image"
// @Success 200 {object} object{message=string,url=string,publicId=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /upload/image [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	obj, err := s.singleUpload(c, "image", media.KindImage)
	if err != nil {
		return respondError(c, err)
	}

	res, err := s.uploadService.UploadImage(c.UserContext(), obj)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Image uploaded successfully",
		"url":      res.URL,
		"publicId": res.PublicID,
	})
}

// UploadDocument handles POST /api/upload/document
// @Summary Upload one document to the media host
// @Tags upload
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param document formData file true "Document"
// @Success 200 {object} object{message=string,document=models.Document}
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /upload/document [post]
func (s *Server) UploadDocument(c *fiber.Ctx) error {
	obj, err := s.singleUpload(c, "document", media.KindDocument)
	if err != nil {
		return respondError(c, err)
	}

	doc, err := s.uploadService.UploadDocument(c.UserContext(), obj)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Document uploaded successfully",
		"document": doc,
	})
}

// UploadMultiple handles POST /api/upload/multiple
// @Summary Upload several images and documents
// @Tags upload
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param images formData file false "Up to 5 images"
// @Param documents formData file false "Up to 5 documents"
// @Success 200 {object} object{message=string,results=service.UploadResults}
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /upload/multiple [post]
func (s *Server) UploadMultiple(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, models.NewValidationError(media.MsgNoFile))
	}
	files, err := s.uploadPolicy.Collect(form,
		media.Field{Name: "images", Kind: media.KindImage, MaxCount: maxPostImages},
		media.Field{Name: "documents", Kind: media.KindDocument, MaxCount: maxPostDocuments},
	)
	if err != nil {
		return respondError(c, err)
	}
	if len(files["images"]) == 0 && len(files["documents"]) == 0 {
		return respondError(c, models.NewValidationError(media.MsgNoFile))
	}

	results, err := s.uploadService.UploadMultiple(c.UserContext(), files["images"], files["documents"])
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Files uploaded successfully",
		"results": results,
	})
}

// singleUpload reads exactly one file from field, applying the upload policy.
func (s *Server) singleUpload(c *fiber.Ctx, field string, kind media.Kind) (media.Object, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return media.Object{}, models.NewValidationError(media.MsgNoFile)
	}
	files, err := s.uploadPolicy.Collect(form, media.Field{Name: field, Kind: kind, MaxCount: 1})
	if err != nil {
		return media.Object{}, err
	}
	if len(files[field]) == 0 {
		return media.Object{}, models.NewValidationError(media.MsgNoFile)
	}
	return files[field][0], nil
}
