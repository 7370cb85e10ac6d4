package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "safety"
)

// Ключи состояния
const (
	RedisKeyEmergencyStop = RedisNamespace + ":estop:state"
)

// Каналы Pub/Sub (события)
const (
	RedisChanEmergencyStop = RedisNamespace + ":estop:signal"
)
