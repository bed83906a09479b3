// Package statuscode defines the business status code namespace shared by the
// boxoffice API and its clients, and the mapping from raw codes to semantic
// outcomes. The namespace is partitioned by domain: 1xxx user, 2xxx
// performance, 3xxx ticket, 4xxx order, 5xxx settings, 6xxx rate/maintenance.
// Callers switch on the code, never on message text.
package statuscode

// Reserved HTTP-aligned codes.
const (
	Success       = 200
	BadRequest    = 400
	Unauthorized  = 401
	Forbidden     = 403
	NotFound      = 404
	InternalError = 500
)

// User domain (1xxx).
const (
	UserExist         = 1001
	UserPasswordError = 1002
	UserInfoError     = 1003
	UserAvatarError   = 1004
)

// Performance domain (2xxx).
const (
	PerformanceNotExist  = 2001
	PerformanceNotOnSale = 2002
)

// Ticket domain (3xxx).
const (
	TicketNotExist          = 3001
	TicketStockInsufficient = 3002
	TicketSeckillFailed     = 3003
	TicketLimitExceeded     = 3004
)

// Order domain (4xxx).
const (
	OrderNotExist    = 4001
	OrderExpired     = 4002
	OrderStatusError = 4003
	OrderDuplicate   = 4004
	PaymentError     = 4005
)

// Settings domain (5xxx).
const (
	SettingsUpdateFailed = 5001
	DataExportFailed     = 5002
	DataDeleteFailed     = 5003
)

// Rate limiting and maintenance (6xxx).
const (
	RateLimitExceeded = 6001
	SystemMaintenance = 6002
)

// Outcome is the semantic meaning of a status code. Every defined code maps
// to exactly one outcome; codes the client has never seen map to
// OutcomeTransient, never to a crash.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeValidation
	OutcomeStockInsufficient
	OutcomeLimitExceeded
	OutcomeNotFound
	OutcomeOrderNotFound
	OutcomeOrderExpired
	OutcomeOrderStatusMismatch
	OutcomeDuplicate
	OutcomeUnauthenticated
	OutcomeForbidden
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeValidation:
		return "validation"
	case OutcomeStockInsufficient:
		return "stock_insufficient"
	case OutcomeLimitExceeded:
		return "limit_exceeded"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeOrderNotFound:
		return "order_not_found"
	case OutcomeOrderExpired:
		return "order_expired"
	case OutcomeOrderStatusMismatch:
		return "order_status_mismatch"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Interpret maps a raw backend code onto its outcome.
func Interpret(code int) Outcome {
	switch code {
	case Success:
		return OutcomeSuccess
	case BadRequest:
		return OutcomeValidation
	case Unauthorized:
		return OutcomeUnauthenticated
	case Forbidden:
		return OutcomeForbidden
	case TicketStockInsufficient:
		return OutcomeStockInsufficient
	case TicketLimitExceeded:
		return OutcomeLimitExceeded
	case OrderNotExist:
		return OutcomeOrderNotFound
	case NotFound, TicketNotExist, PerformanceNotExist:
		return OutcomeNotFound
	case OrderExpired:
		return OutcomeOrderExpired
	case OrderStatusError:
		return OutcomeOrderStatusMismatch
	case OrderDuplicate:
		return OutcomeDuplicate
	default:
		// 3003, 500, rate limits, maintenance windows, and anything the
		// backend invents later all degrade to a generic retryable failure.
		return OutcomeTransient
	}
}

// Retryable reports whether re-issuing the same request may succeed without
// the caller changing its input. Stock and cap failures require the user to
// re-select; state conflicts require a refetch first.
func (o Outcome) Retryable() bool {
	return o == OutcomeTransient
}

// Message returns the canonical user-facing message for a code, falling back
// to the generic failure message for unmapped codes.
func Message(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[InternalError]
}

var messages = map[int]string{
	Success:                 "success",
	BadRequest:              "请求参数错误",
	Unauthorized:            "未认证(未登录或token过期)",
	Forbidden:               "权限不足",
	NotFound:                "资源不存在",
	InternalError:           "服务器内部错误",
	UserExist:               "用户已存在",
	UserPasswordError:       "用户名或密码错误",
	UserInfoError:           "用户信息格式错误",
	UserAvatarError:         "头像上传失败",
	PerformanceNotExist:     "演出不存在",
	PerformanceNotOnSale:    "演出未开售",
	TicketNotExist:          "票种不存在",
	TicketStockInsufficient: "库存不足",
	TicketSeckillFailed:     "抢票失败，请重试",
	TicketLimitExceeded:     "每人限购5张票",
	OrderNotExist:           "订单不存在",
	OrderExpired:            "订单已过期",
	OrderStatusError:        "订单状态错误",
	OrderDuplicate:          "不能重复创建订单",
	PaymentError:            "支付失败",
	SettingsUpdateFailed:    "设置更新失败",
	DataExportFailed:        "数据导出失败",
	DataDeleteFailed:        "数据删除失败",
	RateLimitExceeded:       "请求过于频繁，请稍后再试",
	SystemMaintenance:       "系统维护中，请稍后再试",
}
