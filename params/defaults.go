package params

import "github.com/MrEthical07/goIAM/store"

// Parameter keys read by the service.
const (
	KeyPasswordExpiryDays       = "password_expiry_days"
	KeyPasswordMinLength        = "password_min_length"
	KeyPasswordRequireUppercase = "password_require_uppercase"
	KeyPasswordRequireLowercase = "password_require_lowercase"
	KeyPasswordRequireNumber    = "password_require_number"
	KeyPasswordRequireSymbol    = "password_require_symbol"
	KeySessionTimeoutMinutes    = "session_timeout_minutes"
	KeyMaxLoginAttempts         = "max_login_attempts"
	KeyLockDurationMinutes      = "lock_duration_minutes"
	KeyCodeTTLMinutes           = "code_ttl_minutes"
	KeyCodeMaxAttempts          = "code_max_attempts"
)

var defaults = []store.Parameter{
	{Key: KeyPasswordExpiryDays, Value: "60", Category: store.CategoryPassword, DataType: store.DataTypeNumber,
		Description: "Días hasta que una contraseña expire"},
	{Key: KeyPasswordMinLength, Value: "12", Category: store.CategoryPassword, DataType: store.DataTypeNumber,
		Description: "Longitud mínima de la contraseña"},
	{Key: KeyPasswordRequireUppercase, Value: "true", Category: store.CategoryPassword, DataType: store.DataTypeBoolean,
		Description: "Requiere al menos una letra mayúscula"},
	{Key: KeyPasswordRequireLowercase, Value: "true", Category: store.CategoryPassword, DataType: store.DataTypeBoolean,
		Description: "Requiere al menos una letra minúscula"},
	{Key: KeyPasswordRequireNumber, Value: "true", Category: store.CategoryPassword, DataType: store.DataTypeBoolean,
		Description: "Requiere al menos un número"},
	{Key: KeyPasswordRequireSymbol, Value: "true", Category: store.CategoryPassword, DataType: store.DataTypeBoolean,
		Description: "Requiere al menos un símbolo"},
	{Key: KeySessionTimeoutMinutes, Value: "30", Category: store.CategorySecurity, DataType: store.DataTypeNumber,
		Description: "Minutos de inactividad antes de cerrar la sesión en el cliente"},
	{Key: KeyMaxLoginAttempts, Value: "3", Category: store.CategorySecurity, DataType: store.DataTypeNumber,
		Description: "Intentos de inicio de sesión fallidos antes del bloqueo"},
	{Key: KeyLockDurationMinutes, Value: "15", Category: store.CategorySecurity, DataType: store.DataTypeNumber,
		Description: "Minutos de bloqueo tras superar los intentos"},
	{Key: KeyCodeTTLMinutes, Value: "10", Category: store.CategorySecurity, DataType: store.DataTypeNumber,
		Description: "Minutos de validez del código de verificación"},
	{Key: KeyCodeMaxAttempts, Value: "3", Category: store.CategorySecurity, DataType: store.DataTypeNumber,
		Description: "Intentos permitidos por código de verificación"},
}

// Defaults returns a copy of the seeded parameter set.
func Defaults() []store.Parameter {
	out := make([]store.Parameter, len(defaults))
	copy(out, defaults)
	return out
}

// DefaultValue returns the seeded value for key.
func DefaultValue(key string) (string, bool) {
	key = store.NormalizeParameterKey(key)
	for _, p := range defaults {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}
