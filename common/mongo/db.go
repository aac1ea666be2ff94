package mongo

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/mgo.v2"

	"github.com/LeaguesOfHoleHoleShoes/Odin/common/log"
)

var session *mgo.Session
var mutex sync.Mutex

// 获取数据库连接
// 先尝试用admin库鉴权（readWriteAnyDatabase授权在admin），不成功再用对应的数据库鉴权
func GetDB(dbConfig *mgo.DialInfo) (*mgo.Session, error) {
	mutex.Lock()
	defer mutex.Unlock()
	if session != nil {
		return session, nil
	}

	log.L.Info("init mongo db session", zap.Strings("hosts", dbConfig.Addrs), zap.String("db", dbConfig.Database))
	cfg := *dbConfig
	var err error
	if cfg.Username != "" {
		cfg.Database = "admin"
		if session, err = mgo.DialWithInfo(&cfg); err == nil {
			session.SetMode(mgo.Strong, true)
			return session, nil
		}
		cfg.Database = dbConfig.Database
	}
	if session, err = mgo.DialWithInfo(&cfg); err != nil {
		session = nil
		return nil, fmt.Errorf("dial mongo %v: %w", dbConfig.Addrs, err)
	}
	session.SetMode(mgo.Strong, true)

	return session, nil
}

// 清空某个数据库下的所有数据，只允许测试库
func ClearAllData(dbConfig *mgo.DialInfo, dbName string) error {
	if !strings.Contains(dbName, "test") {
		log.L.Warn("refuse to clear a non test database", zap.String("db", dbName))
		return fmt.Errorf("refuse to clear database %v", dbName)
	}
	s, err := GetDB(dbConfig)
	if err != nil {
		return err
	}
	tmpDB := s.DB(dbName)
	cNames, err := tmpDB.CollectionNames()
	if err != nil {
		return err
	}
	for _, cn := range cNames {
		// DropCollection不会清除session中缓存的index，反复清空会导致后边无法EnsureIndex
		if _, err := tmpDB.C(cn).RemoveAll(nil); err != nil {
			return err
		}
	}
	return nil
}

// 关闭连接
func CloseDb() {
	mutex.Lock()
	defer mutex.Unlock()
	if session != nil {
		session.Close()
		session = nil
	}
}
