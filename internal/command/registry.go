package command

// BuildTable constructs the static command table of §4.E. Arity is
// positive for an exact count, negative for a minimum (including the
// command name itself in both cases). Key-positions are first/last/
// step into the argument vector, used by the paging preload gate and
// by nothing else in the dispatcher proper.
func BuildTable(e *Engine) Table {
	t := newTable()

	reg := func(name string, arity int, flags Flag, first, last, step int, h Handler) {
		t.add(&Descriptor{Name: name, Arity: arity, Flags: flags, FirstKey: first, LastKey: last, KeyStep: step, Handler: h})
	}

	const w = FlagWrite
	const oom = FlagDenyOOM

	// Strings
	reg("GET", 2, 0, 1, 1, 1, e.cmdGet)
	reg("SET", 3, w|oom|FlagBulk, 1, 1, 1, e.cmdSet)
	reg("SETNX", 3, w|oom|FlagBulk, 1, 1, 1, e.cmdSetNX)
	reg("GETSET", 3, w|oom|FlagBulk, 1, 1, 1, e.cmdGetSet)
	reg("APPEND", 3, w|oom|FlagBulk, 1, 1, 1, e.cmdAppend)
	reg("SUBSTR", 4, 0, 1, 1, 1, e.cmdSubstr)
	reg("MGET", -2, 0, 1, -1, 1, e.cmdMGet)
	reg("MSET", -3, w|oom, 1, -1, 2, e.cmdMSet)
	reg("MSETNX", -3, w|oom, 1, -1, 2, e.cmdMSetNX)
	reg("INCR", 2, w|oom, 1, 1, 1, e.cmdIncr)
	reg("DECR", 2, w|oom, 1, 1, 1, e.cmdDecr)
	reg("INCRBY", 3, w|oom, 1, 1, 1, e.cmdIncrBy)
	reg("DECRBY", 3, w|oom, 1, 1, 1, e.cmdDecrBy)
	reg("EXISTS", 2, 0, 1, 1, 1, e.cmdExists)
	reg("DEL", -2, w, 1, -1, 1, e.cmdDel)

	// Lists
	reg("LPUSH", -3, w|oom|FlagBulk, 1, 1, 1, e.cmdLPush)
	reg("RPUSH", -3, w|oom|FlagBulk, 1, 1, 1, e.cmdRPush)
	reg("LPOP", 2, w, 1, 1, 1, e.cmdLPop)
	reg("RPOP", 2, w, 1, 1, 1, e.cmdRPop)
	reg("BLPOP", -3, w, 1, -2, 1, e.cmdBLPop)
	reg("BRPOP", -3, w, 1, -2, 1, e.cmdBRPop)
	reg("LLEN", 2, 0, 1, 1, 1, e.cmdLLen)
	reg("LINDEX", 3, 0, 1, 1, 1, e.cmdLIndex)
	reg("LSET", 4, w, 1, 1, 1, e.cmdLSet)
	reg("LRANGE", 4, 0, 1, 1, 1, e.cmdLRange)
	reg("LTRIM", 4, w, 1, 1, 1, e.cmdLTrim)
	reg("LREM", 4, w, 1, 1, 1, e.cmdLRem)
	reg("RPOPLPUSH", 3, w|oom, 1, 2, 1, e.cmdRPopLPush)

	// Sets
	reg("SADD", -3, w|oom, 1, 1, 1, e.cmdSAdd)
	reg("SREM", -3, w, 1, 1, 1, e.cmdSRem)
	reg("SMOVE", 4, w, 1, 2, 1, e.cmdSMove)
	reg("SISMEMBER", 3, 0, 1, 1, 1, e.cmdSIsMember)
	reg("SCARD", 2, 0, 1, 1, 1, e.cmdSCard)
	reg("SPOP", 2, w, 1, 1, 1, e.cmdSPop)
	reg("SRANDMEMBER", 2, 0, 1, 1, 1, e.cmdSRandMember)
	reg("SINTER", -2, 0, 1, -1, 1, e.cmdSInter)
	reg("SINTERSTORE", -3, w|oom, 1, -1, 1, e.cmdSInterStore)
	reg("SUNION", -2, 0, 1, -1, 1, e.cmdSUnion)
	reg("SUNIONSTORE", -3, w|oom, 1, -1, 1, e.cmdSUnionStore)
	reg("SDIFF", -2, 0, 1, -1, 1, e.cmdSDiff)
	reg("SDIFFSTORE", -3, w|oom, 1, -1, 1, e.cmdSDiffStore)
	reg("SMEMBERS", 2, 0, 1, 1, 1, e.cmdSMembers)

	// Sorted sets
	reg("ZADD", -4, w|oom, 1, 1, 1, e.cmdZAdd)
	reg("ZINCRBY", 4, w|oom, 1, 1, 1, e.cmdZIncrBy)
	reg("ZREM", -3, w, 1, 1, 1, e.cmdZRem)
	reg("ZRANGE", -4, 0, 1, 1, 1, e.cmdZRange)
	reg("ZREVRANGE", -4, 0, 1, 1, 1, e.cmdZRevRange)
	reg("ZRANGEBYSCORE", -4, 0, 1, 1, 1, e.cmdZRangeByScore)
	reg("ZCOUNT", 4, 0, 1, 1, 1, e.cmdZCount)
	reg("ZCARD", 2, 0, 1, 1, 1, e.cmdZCard)
	reg("ZSCORE", 3, 0, 1, 1, 1, e.cmdZScore)
	reg("ZRANK", 3, 0, 1, 1, 1, e.cmdZRank)
	reg("ZREVRANK", 3, 0, 1, 1, 1, e.cmdZRevRank)
	reg("ZREMRANGEBYSCORE", 4, w, 1, 1, 1, e.cmdZRemRangeByScore)
	reg("ZREMRANGEBYRANK", 4, w, 1, 1, 1, e.cmdZRemRangeByRank)
	reg("ZUNION", -2, 0, 1, -1, 1, e.cmdZUnion)
	reg("ZINTER", -2, 0, 1, -1, 1, e.cmdZInter)

	// Hashes
	reg("HSET", 4, w|oom|FlagBulk, 1, 1, 1, e.cmdHSet)
	reg("HGET", 3, 0, 1, 1, 1, e.cmdHGet)
	reg("HDEL", -3, w, 1, 1, 1, e.cmdHDel)
	reg("HLEN", 2, 0, 1, 1, 1, e.cmdHLen)
	reg("HKEYS", 2, 0, 1, 1, 1, e.cmdHKeys)
	reg("HVALS", 2, 0, 1, 1, 1, e.cmdHVals)
	reg("HGETALL", 2, 0, 1, 1, 1, e.cmdHGetAll)
	reg("HEXISTS", 3, 0, 1, 1, 1, e.cmdHExists)

	// Keyspace
	reg("KEYS", 2, 0, 0, 0, 0, e.cmdKeys)
	reg("RANDOMKEY", 1, 0, 0, 0, 0, e.cmdRandomKey)
	reg("TYPE", 2, 0, 1, 1, 1, e.cmdType)
	reg("RENAME", 3, w, 1, 2, 1, e.cmdRename)
	reg("RENAMENX", 3, w, 1, 2, 1, e.cmdRenameNX)
	reg("MOVE", 3, w, 1, 1, 1, e.cmdMove)
	reg("SELECT", 2, 0, 0, 0, 0, e.cmdSelect)
	reg("FLUSHDB", 1, w, 0, 0, 0, e.cmdFlushDB)
	reg("FLUSHALL", 1, w, 0, 0, 0, e.cmdFlushAll)
	reg("DBSIZE", 1, 0, 0, 0, 0, e.cmdDBSize)
	reg("EXPIRE", 3, w, 1, 1, 1, e.cmdExpire)
	reg("EXPIREAT", 3, w, 1, 1, 1, e.cmdExpireAt)
	reg("TTL", 2, 0, 1, 1, 1, e.cmdTTL)
	reg("SORT", -2, w|oom, 1, 1, 1, e.cmdSort)

	// Server / admin
	reg("PING", -1, FlagInline, 0, 0, 0, cmdPing)
	reg("ECHO", 2, FlagInline|FlagBulk, 0, 0, 0, cmdEcho)
	reg("AUTH", 2, FlagInline|FlagBulk, 0, 0, 0, e.cmdAuth)
	reg("SAVE", 1, FlagInline, 0, 0, 0, e.cmdSave)
	reg("BGSAVE", 1, FlagInline, 0, 0, 0, e.cmdBGSave)
	reg("BGREWRITEAOF", 1, FlagInline, 0, 0, 0, e.cmdBGRewriteAOF)
	reg("LASTSAVE", 1, FlagInline, 0, 0, 0, e.cmdLastSave)
	reg("SHUTDOWN", -1, FlagInline, 0, 0, 0, cmdShutdown)
	reg("INFO", -1, FlagInline, 0, 0, 0, e.cmdInfo)
	reg("MONITOR", 1, FlagInline, 0, 0, 0, e.cmdMonitor)
	reg("SLAVEOF", 3, FlagInline, 0, 0, 0, e.cmdSlaveOf)
	reg("SYNC", 1, FlagInline, 0, 0, 0, e.cmdSync)
	reg("DEBUG", -2, FlagInline|FlagBulk, 0, 0, 0, e.cmdDebug)

	// Transactions
	reg("MULTI", 1, FlagInline, 0, 0, 0, cmdMulti)
	reg("EXEC", 1, FlagInline, 0, 0, 0, e.cmdExec)
	reg("DISCARD", 1, FlagInline, 0, 0, 0, cmdDiscard)

	return t
}

// IsBulk adapts the table to protocol.IsBulkFunc, used by the
// inline-protocol parser to know whether a command's final argument
// may arrive via the trailing bulk-length form (§4.D).
func (t Table) IsBulk(name string) bool {
	d, ok := t[name]
	return ok && d.Flags&FlagBulk != 0
}
