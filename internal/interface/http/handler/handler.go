// Package handler HTTP处理器
//
// 职责边界：
// 1. 参数绑定与校验（gin binding tag）
// 2. 领域哨兵错误 → 业务错误码的统一翻译（见translate）
// 3. 领域对象 → HTTP DTO的转换
// 业务规则一律在application层，handler不做任何状态判断
package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dpang/order-server/internal/domain/order"
	apperrors "github.com/dpang/order-server/pkg/errors"
	"github.com/dpang/order-server/pkg/response"
)

// translate 领域哨兵错误翻译为带错误码的AppError
//
// 教学要点：
// domain层只认识errors.New的哨兵错误，错误码是HTTP接口的概念，
// 翻译表集中放在这里，domain层不需要感知pkg/errors
func translate(err error) error {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		return apperrors.ErrOrderNotFound
	case errors.Is(err, order.ErrOrderDetailNotFound):
		return apperrors.ErrOrderDetailNotFound
	case errors.Is(err, order.ErrCancelNotFound):
		return apperrors.ErrCancelNotFound
	case errors.Is(err, order.ErrRefundNotFound):
		return apperrors.ErrRefundNotFound
	case errors.Is(err, order.ErrProductNotFound):
		return apperrors.ErrProductNotFound
	case errors.Is(err, order.ErrInsufficientStock):
		return apperrors.ErrInsufficientStock
	case errors.Is(err, order.ErrInsufficientMileage):
		return apperrors.ErrInsufficientMileage
	case errors.Is(err, order.ErrUnableToCancel):
		return apperrors.ErrUnableToCancel
	case errors.Is(err, order.ErrUnableToRefund):
		return apperrors.ErrUnableToRefund
	case errors.Is(err, order.ErrInvalidOrderStatusChange),
		errors.Is(err, order.ErrInvalidRefundStatusChange):
		return apperrors.ErrInvalidStatusChange
	case errors.Is(err, order.ErrAlreadyInRequestedStatus):
		return apperrors.ErrAlreadyInStatus
	default:
		return err
	}
}

// fail 翻译并写出错误响应
func fail(c *gin.Context, err error) {
	response.Error(c, translate(err))
}

// uintParam 解析路径参数中的数字ID，非法时返回false并已写出错误响应
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		response.ErrorWithCode(c, 40900, "参数错误: "+name+"必须是正整数")
		return 0, false
	}
	return uint(v), true
}
