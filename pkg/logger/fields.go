package logger

import "context"

// Fields 注入到上下文中的结构化日志字段
type Fields map[string]interface{}

// fieldsKey 上下文键类型，避免与其他包冲突
type fieldsKey struct{}

// InjectFields 将字段注入上下文，后续带上下文的日志调用会自动携带这些字段。
// 重复注入时新字段覆盖同名旧字段，不影响原上下文中的Fields。
func InjectFields(ctx context.Context, fields Fields) context.Context {
	if len(fields) == 0 {
		return ctx
	}

	existing := FieldsFromContext(ctx)
	merged := make(Fields, len(existing)+len(fields))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return context.WithValue(ctx, fieldsKey{}, merged)
}

// FieldsFromContext 从上下文中取出已注入的字段，没有时返回nil
func FieldsFromContext(ctx context.Context) Fields {
	if ctx == nil {
		return nil
	}

	fields, _ := ctx.Value(fieldsKey{}).(Fields)
	return fields
}
