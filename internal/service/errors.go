// 文件路径: internal/service/errors.go
// 模块说明: 业务层哨兵错误，handler 通过 errors.Is 映射为 HTTP 状态码。
package service

import "errors"

var (
	// ErrNotFound indicates requested resource does not exist.
	ErrNotFound = errors.New("service: not found / 未找到资源")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("service: invalid input / 参数无效")
	// ErrInvalidCredentials indicates provided credentials are wrong.
	ErrInvalidCredentials = errors.New("service: invalid credentials / 凭证无效")
	// ErrRateLimited indicates caller exceeded allowed attempts.
	ErrRateLimited = errors.New("service: rate limited / 请求过于频繁")
	// ErrAccountBlocked indicates the customer has been blocked by an admin.
	ErrAccountBlocked = errors.New("service: account blocked / 账号已被封禁")
	// ErrAccountDisabled indicates the user row is inactive.
	ErrAccountDisabled = errors.New("service: account disabled / 账号已禁用")
	// ErrUnauthorized indicates missing or invalid auth tokens.
	ErrUnauthorized = errors.New("service: unauthorized / 未授权")
	// ErrForbidden indicates the caller may not touch the resource.
	ErrForbidden = errors.New("service: forbidden / 无权访问")
	// ErrInvalidRefreshToken indicates refresh token problems.
	ErrInvalidRefreshToken = errors.New("service: invalid refresh token / 刷新令牌无效")
	// ErrUsernameExists indicates username already registered.
	ErrUsernameExists = errors.New("service: username already exists / 用户名已存在")
	// ErrEmailExists indicates email already registered.
	ErrEmailExists = errors.New("service: email already exists / 邮箱已存在")
	// ErrPasswordMismatch indicates password and confirmation differ.
	ErrPasswordMismatch = errors.New("service: passwords do not match / 两次密码不一致")
	// ErrWeakPassword indicates password is shorter than the minimum.
	ErrWeakPassword = errors.New("service: password too short / 密码长度不足")
	// ErrSKUExists indicates the product SKU is taken.
	ErrSKUExists = errors.New("service: sku already exists / SKU 已存在")
	// ErrCategoryIconExists indicates the category already has an icon.
	ErrCategoryIconExists = errors.New("service: category icon already exists / 该分类已有图标")

	// ErrInvalidQuantity indicates a non-positive or malformed quantity.
	ErrInvalidQuantity = errors.New("service: invalid quantity / 数量无效")
	// ErrOutOfStock indicates the requested quantity exceeds stock.
	ErrOutOfStock = errors.New("service: out of stock / 库存不足")
	// ErrEmptyCart indicates checkout from an empty cart.
	ErrEmptyCart = errors.New("service: cart is empty / 购物车为空")
	// ErrInvalidPaymentMethod indicates an unknown payment method.
	ErrInvalidPaymentMethod = errors.New("service: invalid payment method / 支付方式无效")
	// ErrAddressRequired indicates checkout without any shipping address.
	ErrAddressRequired = errors.New("service: shipping address required / 需要收货地址")

	// ErrInvalidTransition indicates an order status change that is not allowed.
	ErrInvalidTransition = errors.New("service: invalid status transition / 订单状态流转无效")
	// ErrOrderNotCancellable indicates the order is past the cancellable stages.
	ErrOrderNotCancellable = errors.New("service: order cannot be cancelled / 订单无法取消")
	// ErrAwaitingApproval indicates the order has not been approved yet.
	ErrAwaitingApproval = errors.New("service: order awaiting approval / 订单待审核")

	// ErrInsufficientPoints indicates redeeming beyond the available balance.
	ErrInsufficientPoints = errors.New("service: insufficient points / 积分不足")
	// ErrInvalidSignature indicates the gateway callback signature did not verify.
	ErrInvalidSignature = errors.New("service: invalid payment signature / 支付签名无效")
	// ErrPaymentNotPending indicates the order is not awaiting online payment.
	ErrPaymentNotPending = errors.New("service: payment not pending / 订单无需支付")
	// ErrPaymentNotConfigured indicates the gateway keys are missing.
	ErrPaymentNotConfigured = errors.New("service: payment gateway not configured / 支付网关未配置")

	// ErrReturnNotAllowed indicates the item is not eligible for return.
	ErrReturnNotAllowed = errors.New("service: return not allowed / 不允许退货")
	// ErrReturnExists indicates an open return already exists for the item.
	ErrReturnExists = errors.New("service: return already requested / 已存在退货申请")
	// ErrInvalidRefund indicates the refund amount is out of range.
	ErrInvalidRefund = errors.New("service: invalid refund amount / 退款金额无效")

	// ErrInvalidRating indicates a rating outside 1..5.
	ErrInvalidRating = errors.New("service: rating must be between 1 and 5 / 评分必须在 1 到 5 之间")
	// ErrReviewFieldsRequired indicates missing name, email or comment.
	ErrReviewFieldsRequired = errors.New("service: name, email and comment are required / 姓名、邮箱和评价内容不能为空")

	// ErrChatClosed indicates a message to a closed support thread.
	ErrChatClosed = errors.New("service: chat thread closed / 会话已关闭")
)
