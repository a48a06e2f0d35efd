// Package dedup picks one survivor per server-reported duplicate group and
// deletes the rest.
//
// Members are ranked into tiers by raw path prefix: the primary picture
// library first, then the server's managed internal storage, then anything
// else. The largest member of the best populated tier survives; every other
// member of the group, in any tier, is deleted.
package dedup
