package mongo

import (
	"time"

	"gopkg.in/mgo.v2"
)

// new mongo conf，uname为空则不做鉴权
func NewDbConfig(hosts []string, dbName string, uname string, pwd string) *mgo.DialInfo {
	return &mgo.DialInfo{
		Addrs:     hosts,
		Database:  dbName,
		Username:  uname,
		Password:  pwd,
		Direct:    false,
		Timeout:   time.Second * 5,
		PoolLimit: 100, // Session.SetPoolLimit
	}
}
