package validators

import "go.mongodb.org/mongo-driver/bson"

var CampValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"organizer_id",
			"capacity",
			"registered_count",
			"registrants",
			"window_start",
			"window_end",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 120,
			},

			"organizer_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"capacity": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  10000,
			},

			"registered_count": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"registrants": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"location": bson.M{
				"bsonType": "object",
				"required": []string{"latitude", "longitude"},
				"properties": bson.M{
					"latitude": bson.M{
						"bsonType": "double",
						"minimum":  -90,
						"maximum":  90,
					},
					"longitude": bson.M{
						"bsonType": "double",
						"minimum":  -180,
						"maximum":  180,
					},
				},
			},

			"window_start": bson.M{
				"bsonType": "date",
			},

			"window_end": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"upcoming",
					"ongoing",
					"completed",
					"cancelled",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
