package archive

import (
	"fmt"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/LeaguesOfHoleHoleShoes/Odin/common/mongo"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/abstracts"
)

const (
	roundResultTN = "round_result"
	matchResultTN = "match_result"
)

func NewMatchDBByMongo(config *mgo.DialInfo, dbName string) (*MatchDBByMongo, error) {
	db := &MatchDBByMongo{
		config: config,
		dbName: dbName,

		roundTN: roundResultTN,
		matchTN: matchResultTN,
	}

	if err := db.migrate(); err != nil {
		return nil, err
	}
	return db, nil
}

/*

对局存档，只写不改
1. 每局结束写一条round_result
1. 整场结束写一条match_result

party id只在进程内唯一，进程重启后会重复，所以不建unique索引

*/
type MatchDBByMongo struct {
	config *mgo.DialInfo
	dbName string

	roundTN string
	matchTN string
}

func (db *MatchDBByMongo) SaveRound(r abstracts.RoundRecord) error {
	s, err := db.session()
	if err != nil {
		return err
	}
	defer s.Close()
	return s.DB(db.dbName).C(db.roundTN).Insert(r)
}

func (db *MatchDBByMongo) SaveMatch(r abstracts.MatchRecord) error {
	s, err := db.session()
	if err != nil {
		return err
	}
	defer s.Close()
	return s.DB(db.dbName).C(db.matchTN).Insert(r)
}

// 按局数从小到大
func (db *MatchDBByMongo) GetRoundsByParty(partyID int64) (result []abstracts.RoundRecord, err error) {
	s, err := db.session()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	err = s.DB(db.dbName).C(db.roundTN).Find(bson.M{"party_id": partyID}).Sort("round_number").All(&result)
	return
}

// 某个名字参加过的比赛，最近的在前，limit<=0不限制
func (db *MatchDBByMongo) GetMatchesByPlayer(name string, limit int) (result []abstracts.MatchRecord, err error) {
	s, err := db.session()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	q := s.DB(db.dbName).C(db.matchTN).Find(bson.M{"player_names": name}).Sort("-finished_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err = q.All(&result)
	return
}

// 共用全局连接，每次操作copy一份
func (db *MatchDBByMongo) session() (*mgo.Session, error) {
	s, err := mongo.GetDB(db.config)
	if err != nil {
		return nil, err
	}
	return s.Copy(), nil
}

func (db *MatchDBByMongo) migrate() error {
	s, err := db.session()
	if err != nil {
		return err
	}
	defer s.Close()

	indexes := map[string][]mgo.Index{
		db.roundTN: {
			{Key: []string{"party_id", "round_number"}},
			{Key: []string{"-finished_at"}},
		},
		db.matchTN: {
			{Key: []string{"player_names"}},
			{Key: []string{"-finished_at"}},
		},
	}
	for tn, idxes := range indexes {
		for _, idx := range idxes {
			if err := s.DB(db.dbName).C(tn).EnsureIndex(idx); err != nil {
				return fmt.Errorf("ensure index %v on %v: %w", idx.Key, tn, err)
			}
		}
	}
	return nil
}

func (db *MatchDBByMongo) ClearTestData() error {
	return mongo.ClearAllData(db.config, db.dbName)
}
