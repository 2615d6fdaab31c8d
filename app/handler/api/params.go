package handler

import (
	"fmt"
	"stock-service/app/domain"
	"stock-service/app/handler/api/response"
	"stock-service/pkg/ctxutil"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func parseID(c *fiber.Ctx, name string) (int64, error) {
	raw := c.Params(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", domain.ErrBadRequest, name, raw)
	}
	return id, nil
}

// accountKey builds the key from the JWT tenant and the :product_id path param.
func accountKey(c *fiber.Ctx) (domain.AccountKey, error) {
	tenantID, err := ctxutil.GetTenantID(c.UserContext())
	if err != nil {
		return domain.AccountKey{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	productID, err := parseID(c, "product_id")
	if err != nil {
		return domain.AccountKey{}, err
	}
	return domain.AccountKey{TenantID: tenantID, ProductID: productID}, nil
}

// queryTenant reads tenant_id from the query string on internal routes.
func queryTenant(c *fiber.Ctx) (int64, error) {
	tenantID := int64(c.QueryInt("tenant_id"))
	if tenantID <= 0 {
		return 0, fmt.Errorf("%w: tenant_id is required", domain.ErrBadRequest)
	}
	return tenantID, nil
}

func errorResponse(c *fiber.Ctx, err error) error {
	status, resp := response.FromError(err)
	return c.Status(status).JSON(resp)
}
