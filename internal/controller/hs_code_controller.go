package controller

import (
	"strconv"

	"trade-intel-be/internal/dto"
	"trade-intel-be/internal/pkg/serverutils"
	"trade-intel-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IHsCodeController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Reindex(ctx *fiber.Ctx) error
}

type hsCodeController struct {
	hsCodeService service.IHsCodeService
}

func NewHsCodeController(hsCodeService service.IHsCodeService) IHsCodeController {
	return &hsCodeController{
		hsCodeService: hsCodeService,
	}
}

func (c *hsCodeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/hs-code/v1")
	h.Get("search", c.Search)
	h.Get(":code", c.Show)

	// Catalog writes require a logged-in user.
	h.Post("", serverutils.JwtMiddleware, c.Create)
	h.Post(":id/reindex", serverutils.JwtMiddleware, c.Reindex)
}

func (c *hsCodeController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateHsCodeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.hsCodeService.CreateHsCode(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create hs code", res))
}

func (c *hsCodeController) Show(ctx *fiber.Ctx) error {
	code := ctx.Params("code")

	res, err := c.hsCodeService.GetHsCodeByCode(ctx.Context(), code)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get hs code", res))
}

func (c *hsCodeController) Search(ctx *fiber.Ctx) error {
	q := ctx.Query("q", "")
	limit, _ := strconv.Atoi(ctx.Query("limit", "20"))

	res, err := c.hsCodeService.SearchHsCodes(ctx.Context(), q, limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search hs codes", res))
}

func (c *hsCodeController) Reindex(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid hs code id")
	}

	if err := c.hsCodeService.ReindexHsCode(ctx.Context(), id); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success queue reindex", nil))
}
