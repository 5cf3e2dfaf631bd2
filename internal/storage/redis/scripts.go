package redis

const (
	// appendBreakScript stores a completed break and adds it to its day index
	appendBreakScript = `
local record_key = KEYS[1]     -- breakbot:break:{id}
local index_key = KEYS[2]      -- breakbot:breaks:index:{date}

local id = ARGV[1]
local ttl_seconds = tonumber(ARGV[10])

redis.call('HSET', record_key,
  'id', id,
  'date', ARGV[2],
  'user_id', ARGV[3],
  'display_name', ARGV[4],
  'break_type', ARGV[5],
  'started_at', ARGV[6],
  'ended_at', ARGV[7],
  'duration_minutes', ARGV[8],
  'outcome', ARGV[9]
)
redis.call('EXPIRE', record_key, ttl_seconds)

redis.call('SADD', index_key, id)
redis.call('EXPIRE', index_key, ttl_seconds)

return 'OK'
`

	// appendFineScript stores a fine decision and adds it to its day index
	appendFineScript = `
local record_key = KEYS[1]     -- breakbot:fine:{id}
local index_key = KEYS[2]      -- breakbot:fines:index:{date}

local id = ARGV[1]
local ttl_seconds = tonumber(ARGV[12])

redis.call('HSET', record_key,
  'id', id,
  'date', ARGV[2],
  'user_id', ARGV[3],
  'display_name', ARGV[4],
  'break_type', ARGV[5],
  'duration_minutes', ARGV[6],
  'reason', ARGV[7],
  'decision', ARGV[8],
  'amount', ARGV[9],
  'currency', ARGV[10],
  'decided_at', ARGV[11]
)
redis.call('EXPIRE', record_key, ttl_seconds)

redis.call('SADD', index_key, id)
redis.call('EXPIRE', index_key, ttl_seconds)

return 'OK'
`
)
